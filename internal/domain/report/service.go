package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/carechain/carechain/internal/domain/medication"
	"github.com/carechain/carechain/internal/domain/prescription"
	"github.com/carechain/carechain/internal/domain/record"
	"github.com/carechain/carechain/internal/domain/risk"
	"github.com/carechain/carechain/internal/platform/ruleset"
)

// DefaultPatientStream holds patient profile records keyed by email.
const DefaultPatientStream = "users"

const rosterConcurrency = 4

const (
	// MinSearchLength is the shortest medication query that is answered.
	MinSearchLength = 2
	// MaxSearchResults caps a medication search.
	MaxSearchResults = 20
)

// Source is the record store the service reads from and appends to.
type Source interface {
	Items(ctx context.Context, stream string) ([]record.RawRecord, error)
	Append(ctx context.Context, stream, key string, encodedPayload []byte) error
}

type Service struct {
	src           Source
	rules         *ruleset.RuleSet
	engines       *ruleset.Engines
	catalog       []string
	patientStream string
	logger        zerolog.Logger
}

func NewService(src Source, rules *ruleset.RuleSet, patientStream string, logger zerolog.Logger) (*Service, error) {
	if src == nil {
		return nil, fmt.Errorf("record source is required")
	}
	if rules == nil {
		return nil, fmt.Errorf("rule set is required")
	}
	if patientStream == "" {
		patientStream = DefaultPatientStream
	}
	return &Service{
		src:           src,
		rules:         rules,
		engines:       rules.Build(),
		catalog:       catalogOf(rules),
		patientStream: patientStream,
		logger:        logger.With().Str("component", "report").Str("rule_set", rules.Version).Logger(),
	}, nil
}

// Rules returns a summary of the active rule set.
func (s *Service) Rules() ruleset.Summary {
	return s.rules.Summary()
}

// Patients returns the latest snapshot of every patient.
func (s *Service) Patients(ctx context.Context) (map[string]record.PatientSnapshot, error) {
	snapshots, _, err := s.patients(ctx)
	return snapshots, err
}

func (s *Service) patients(ctx context.Context) (map[string]record.PatientSnapshot, int, error) {
	raws, err := s.src.Items(ctx, s.patientStream)
	if err != nil {
		return nil, 0, fmt.Errorf("read patient stream: %w", err)
	}
	snapshots, errs := record.ReduceRaw(raws)
	for _, e := range errs {
		s.logger.Warn().Err(e).Str("stream", s.patientStream).Msg("skipping undecodable patient record")
	}
	return snapshots, len(errs), nil
}

// Patient resolves key, either an email or a username, to the patient's
// latest snapshot.
func (s *Service) Patient(ctx context.Context, key string) (record.PatientSnapshot, error) {
	snapshots, err := s.Patients(ctx)
	if err != nil {
		return record.PatientSnapshot{}, err
	}
	return resolve(snapshots, key)
}

func resolve(snapshots map[string]record.PatientSnapshot, key string) (record.PatientSnapshot, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return record.PatientSnapshot{}, ErrNotFound
	}
	if strings.Contains(key, "@") {
		if p, ok := snapshots[record.IdentityKey(key)]; ok {
			return p, nil
		}
		return record.PatientSnapshot{}, ErrNotFound
	}

	var (
		found record.PatientSnapshot
		ok    bool
	)
	for _, p := range snapshots {
		if !strings.EqualFold(p.Username(), key) {
			continue
		}
		// Several domains can share a username; pick deterministically.
		if !ok || p.IdentityKey < found.IdentityKey {
			found, ok = p, true
		}
	}
	if !ok {
		return record.PatientSnapshot{}, ErrNotFound
	}
	return found, nil
}

// streamFor is the prescription stream of a patient key.
func streamFor(key string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(key), "@")
	return local
}

func (s *Service) prescriptions(ctx context.Context, stream string) ([]prescription.Record, int, error) {
	raws, err := s.src.Items(ctx, stream)
	if err != nil {
		return nil, 0, fmt.Errorf("read prescription stream %s: %w", stream, err)
	}
	records, errs := prescription.DecodeAll(raws)
	for _, e := range errs {
		s.logger.Warn().Err(e).Str("stream", stream).Msg("skipping undecodable prescription")
	}
	return records, len(errs), nil
}

// Prescriptions returns the patient's prescriptions newest first with their
// lifecycle at now.
func (s *Service) Prescriptions(ctx context.Context, key string, now time.Time) ([]PrescriptionStatus, error) {
	r, err := s.Build(ctx, key, now)
	if err != nil {
		return nil, err
	}
	return r.Prescriptions, nil
}

// Prescription returns one prescription of the patient with its lifecycle
// at now.
func (s *Service) Prescription(ctx context.Context, key, id string, now time.Time) (*PrescriptionStatus, error) {
	items, err := s.Prescriptions(ctx, key, now)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	for i := range items {
		if id != "" && strings.EqualFold(items[i].ID, id) {
			return &items[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrPrescriptionNotFound, id)
}

// Build aggregates the report of one patient. The patient stream and the
// prescription stream are read concurrently; all derived values come from the
// same prescription list.
func (s *Service) Build(ctx context.Context, key string, now time.Time) (*Report, error) {
	var (
		snapshots      map[string]record.PatientSnapshot
		records        []prescription.Record
		skippedPatient int
		skippedRx      int
		stream         = streamFor(key)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshots, skippedPatient, err = s.patients(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		records, skippedRx, err = s.prescriptions(gctx, stream)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	patient, err := resolve(snapshots, key)
	if err != nil {
		return nil, err
	}
	if u := patient.Username(); u != stream {
		var err error
		if records, skippedRx, err = s.prescriptions(ctx, u); err != nil {
			return nil, err
		}
	}

	r := s.assemble(patient, records, now)
	r.SkippedRecords = skippedPatient + skippedRx
	return r, nil
}

func (s *Service) assemble(patient record.PatientSnapshot, records []prescription.Record, now time.Time) *Report {
	meds := s.engines.Extractor.Extract(records)
	matched := s.engines.Table.Match(meds)

	views := make([]InteractionView, 0, len(matched))
	for _, m := range matched {
		views = append(views, InteractionView{
			Rule: m,
			Conditions: [2]string{
				prescription.ConditionFor(m.Drugs[0], records),
				prescription.ConditionFor(m.Drugs[1], records),
			},
		})
	}

	sorted := make([]prescription.Record, len(records))
	copy(sorted, records)
	prescription.SortNewestFirst(sorted)

	statuses := make([]PrescriptionStatus, 0, len(sorted))
	expiring := 0
	for _, rec := range sorted {
		l := prescription.ClassifyLifecycle(rec.Date, now)
		if l.ExpiringSoon {
			expiring++
		}
		statuses = append(statuses, PrescriptionStatus{Record: rec, Lifecycle: l})
	}

	return &Report{
		Patient:        patient,
		RuleSetVersion: s.engines.Version,
		GeneratedAt:    now,
		Risk:           s.engines.Scorer.Score(patient.MedicalIssues, matched),
		Medications:    meds,
		Interactions:   views,
		Prescriptions:  statuses,
		ExpiringSoon:   expiring,
	}
}

// Roster lists patients sorted by name. A non-empty doctorEmail keeps only
// the patients who authorized that doctor.
func (s *Service) Roster(ctx context.Context, doctorEmail string) ([]RosterEntry, error) {
	snapshots, err := s.Patients(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RosterEntry, 0, len(snapshots))
	for _, p := range snapshots {
		if doctorEmail != "" && !p.AuthorizedFor(doctorEmail) {
			continue
		}
		level := risk.LevelLow
		if s.engines.Scorer.IsDiabetic(p.MedicalIssues) {
			level = risk.LevelHigh
		}
		out = append(out, RosterEntry{PatientSnapshot: p, Username: p.Username(), RiskLevel: level})
	}
	sort.Slice(out, func(i, j int) bool {
		if !strings.EqualFold(out[i].Name, out[j].Name) {
			return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
		}
		return out[i].IdentityKey < out[j].IdentityKey
	})
	return out, nil
}

// RosterReports builds the full report of every roster patient, in roster order.
func (s *Service) RosterReports(ctx context.Context, doctorEmail string, now time.Time) ([]*Report, error) {
	roster, err := s.Roster(ctx, doctorEmail)
	if err != nil {
		return nil, err
	}

	reports := make([]*Report, len(roster))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rosterConcurrency)
	for i, entry := range roster {
		g.Go(func() error {
			records, skipped, err := s.prescriptions(gctx, entry.Username)
			if err != nil {
				return err
			}
			reports[i] = s.assemble(entry.PatientSnapshot, records, now)
			reports[i].SkippedRecords = skipped
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// SubmitCheckup stores a new prescription in the patient's stream.
func (s *Service) SubmitCheckup(ctx context.Context, key string, c Checkup, now time.Time) (*prescription.Record, error) {
	lines := make([]prescription.MedicationLine, 0, len(c.Medications))
	for _, l := range c.Medications {
		l.Medicine = strings.TrimSpace(l.Medicine)
		if l.Medicine != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 && strings.TrimSpace(c.PrescriptionText) == "" {
		return nil, fmt.Errorf("%w: at least one medication is required", ErrInvalid)
	}
	if strings.TrimSpace(c.Doctor) == "" {
		return nil, fmt.Errorf("%w: doctor is required", ErrInvalid)
	}
	date := strings.TrimSpace(c.Date)
	if date == "" {
		date = now.Format("2006-01-02")
	}

	patient, err := s.Patient(ctx, key)
	if err != nil {
		return nil, err
	}

	id, err := prescription.NewID()
	if err != nil {
		return nil, err
	}
	rec := &prescription.Record{
		ID:               id,
		PatientID:        patient.UserID,
		Email:            patient.Email,
		Date:             date,
		Doctor:           strings.TrimSpace(c.Doctor),
		Hospital:         c.Hospital,
		Condition:        c.Condition,
		DoctorAnalysis:   c.DoctorAnalysis,
		Medications:      lines,
		PrescriptionText: c.PrescriptionText,
		CreatedAt:        now.UTC().Format(time.RFC3339),
	}

	payload, err := record.EncodePayload(rec)
	if err != nil {
		return nil, err
	}
	stream := patient.Username()
	if err := s.src.Append(ctx, stream, rec.ID, payload); err != nil {
		return nil, fmt.Errorf("append prescription: %w", err)
	}
	s.logger.Info().Str("stream", stream).Str("prescription_id", rec.ID).Int("medications", len(lines)).Msg("checkup stored")
	return rec, nil
}

// CheckInteractions matches ad hoc medications and prescription text.
func (s *Service) CheckInteractions(req InteractionCheck) InteractionResult {
	lines := make([]prescription.MedicationLine, 0, len(req.Medications))
	for _, m := range req.Medications {
		lines = append(lines, prescription.MedicationLine{Medicine: m})
	}
	meds := s.engines.Extractor.Extract([]prescription.Record{{Medications: lines}})
	if strings.TrimSpace(req.Text) != "" {
		for _, name := range s.engines.Extractor.FromText(req.Text).Names() {
			meds.Add(name)
		}
	}
	return InteractionResult{Medications: meds, Interactions: s.engines.Table.Match(meds)}
}

// SearchMedications returns catalog drugs matching query, exact matches
// first, then prefix matches, then substring matches.
func (s *Service) SearchMedications(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < MinSearchLength {
		return []string{}
	}

	var exact, prefix, contains []string
	for _, name := range s.catalog {
		n := strings.ToLower(name)
		switch {
		case n == q:
			exact = append(exact, name)
		case strings.HasPrefix(n, q):
			prefix = append(prefix, name)
		case strings.Contains(n, q):
			contains = append(contains, name)
		}
	}

	out := make([]string, 0, len(exact)+len(prefix)+len(contains))
	out = append(append(append(out, exact...), prefix...), contains...)
	if len(out) > MaxSearchResults {
		out = out[:MaxSearchResults]
	}
	return out
}

// catalogOf lists every drug the rule set knows, sorted case-insensitively.
func catalogOf(rules *ruleset.RuleSet) []string {
	names := medication.NewSet()
	for _, r := range rules.Interactions {
		names.Add(r.Drugs[0])
		names.Add(r.Drugs[1])
	}
	for _, c := range rules.Medication.Companions {
		names.Add(c.Drug)
		names.Add(c.Companion)
	}
	out := names.Names()
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}
