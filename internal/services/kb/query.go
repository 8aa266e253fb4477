package kb

// phraseQuery builds the per-phrase query: a lexical match on headings and a
// semantic match on body, restricted to the named knowledge bases through
// the runtime name projection. The aggregation counts the full matched set
// per knowledge base, independent of the returned page.
func phraseQuery(phrase string, names []string, nHits, nFragments int) map[string]interface{} {
	var filter map[string]interface{}
	if len(names) == 0 {
		filter = map[string]interface{}{"match_all": map[string]interface{}{}}
	} else {
		filter = map[string]interface{}{
			"terms": map[string]interface{}{runtimeNameField: names},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": filter,
				"should": []interface{}{
					map[string]interface{}{
						"match": map[string]interface{}{
							"headings": map[string]interface{}{
								"query": phrase,
								"boost": 1,
							},
						},
					},
					map[string]interface{}{
						"semantic": map[string]interface{}{
							"field": "body",
							"query": phrase,
							"boost": 5,
						},
					},
				},
			},
		},
		"min_score": minScore,
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]interface{}{"order": "desc"}},
		},
		"size": nHits,
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"body": map[string]interface{}{
					"number_of_fragments": nFragments,
					"fragment_size":       highlightFragmentSize,
				},
			},
		},
		"fields":  []interface{}{"title", "url", "body", runtimeNameField},
		"_source": false,
		"aggs": map[string]interface{}{
			searchAggName: map[string]interface{}{
				"terms": map[string]interface{}{"field": runtimeNameField},
			},
		},
	}
}
