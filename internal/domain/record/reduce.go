package record

// Reduce keeps, for every identity key, the snapshot with the greatest commit
// time. When two snapshots share a commit time the one later in the input
// wins. Snapshots without an identity key are dropped.
func Reduce(snapshots []PatientSnapshot) map[string]PatientSnapshot {
	latest := make(map[string]PatientSnapshot, len(snapshots))
	for _, s := range snapshots {
		if s.IdentityKey == "" {
			continue
		}
		if cur, ok := latest[s.IdentityKey]; ok && cur.CommitTime > s.CommitTime {
			continue
		}
		latest[s.IdentityKey] = s
	}
	return latest
}

// ReduceRaw decodes every raw record and reduces the valid ones. Records that
// fail to decode are reported in the returned slice and otherwise ignored.
func ReduceRaw(raws []RawRecord) (map[string]PatientSnapshot, []error) {
	var (
		snapshots = make([]PatientSnapshot, 0, len(raws))
		errs      []error
	)
	for _, raw := range raws {
		s, err := Decode(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		snapshots = append(snapshots, s)
	}
	return Reduce(snapshots), errs
}
