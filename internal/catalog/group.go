package catalog

import "strconv"

// GroupKey clusters variants of one product that share the same weight.
// It is used for display only.
func GroupKey(row Row) string {
	if row.WeightGrams == nil {
		return row.ProductID + "|-"
	}
	return row.ProductID + "|" + strconv.FormatFloat(*row.WeightGrams, 'f', -1, 64)
}

// Group is a run of rows sharing a GroupKey.
type Group struct {
	Key  string `json:"key"`
	Rows []Row  `json:"rows"`
}

// GroupRows groups rows by GroupKey, keeping first-seen order.
func GroupRows(rows []Row) []Group {
	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, row := range rows {
		key := GroupKey(row)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Rows = append(groups[i].Rows, row)
	}
	return groups
}
