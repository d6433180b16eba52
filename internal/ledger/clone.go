package ledger

import "slices"

func (r DispatchRecord) clone() DispatchRecord {
	r.Items = slices.Clone(r.Items)
	if r.Items == nil {
		r.Items = []DispatchItem{}
	}

	return r
}

func cloneRecords(in []DispatchRecord) []DispatchRecord {
	out := make([]DispatchRecord, len(in))
	for i, r := range in {
		out[i] = r.clone()
	}

	return out
}
