// internal/matching/matcher.go
package matching

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"hiring-referrals-workers/internal/models"
)

var (
	errWeightsSum     = errors.New("WEIGHTS_SUM_INVALID")
	errThresholdOrder = errors.New("THRESHOLDS_OUT_OF_ORDER")

	// ErrInvalidProfile is returned for inputs no scoring table can rescue.
	ErrInvalidProfile = errors.New("INVALID_PROFILE")
)

// Recommendation buckets the overall score for downstream routing.
type Recommendation string

const (
	RecommendAutoShortlist  Recommendation = "auto_shortlist"
	RecommendManualReview   Recommendation = "manual_review"
	RecommendConsider       Recommendation = "consider"
	RecommendNotRecommended Recommendation = "not_recommended"
)

// SkillPair records which candidate skill satisfied a required one.
type SkillPair struct {
	Required    string `json:"required"`
	MatchedWith string `json:"matchedWith"`
}

// FactorScore is the common shape of one factor's contribution.
type FactorScore struct {
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	Weighted float64 `json:"weighted"`
}

// SkillsScore breaks down how required and preferred skills were covered.
type SkillsScore struct {
	FactorScore
	Exact         []string    `json:"exactMatches"`
	Related       []SkillPair `json:"relatedMatches,omitempty"`
	Transferable  []SkillPair `json:"transferableMatches,omitempty"`
	Missing       []string    `json:"missingSkills,omitempty"`
	TotalRequired int         `json:"totalRequired"`
	Coverage      string      `json:"coverage"`
}

// ExperienceScore explains the experience factor.
type ExperienceScore struct {
	FactorScore
	CandidateYears int    `json:"candidateYears"`
	RequiredRange  string `json:"requiredRange"`
	Status         string `json:"status"`
	DomainRelevant bool   `json:"domainRelevant"`
}

// EducationScore explains the education factor.
type EducationScore struct {
	FactorScore
	CandidateLevel string `json:"candidateLevel"`
	RequiredLevel  string `json:"requiredLevel"`
	FieldMatch     bool   `json:"fieldMatch"`
}

// LocationScore explains the location factor.
type LocationScore struct {
	FactorScore
	MatchType string `json:"matchType"`
}

// SalaryScore explains the salary factor.
type SalaryScore struct {
	FactorScore
	MatchType       string  `json:"matchType"`
	NegotiationRoom float64 `json:"negotiationRoom,omitempty"`
	ExcessPercent   float64 `json:"excessPercent,omitempty"`
}

// MatchResult is the full outcome of one candidate/job comparison.
type MatchResult struct {
	CandidateID    string          `json:"candidateId"`
	JobID          string          `json:"jobId"`
	OverallScore   float64         `json:"overallScore"`
	Recommendation Recommendation  `json:"recommendation"`
	AutoShortlist  bool            `json:"autoShortlist"`
	Skills         SkillsScore     `json:"skills"`
	Experience     ExperienceScore `json:"experience"`
	Education      EducationScore  `json:"education"`
	Location       LocationScore   `json:"location"`
	Salary         SalaryScore     `json:"salary"`
}

// Matcher scores candidates against job postings. It is pure and safe for
// concurrent use; all state is the immutable config captured at New.
type Matcher struct {
	cfg Config

	// related holds the symmetric closure of cfg.RelatedSkills with
	// normalized keys, built once so Score stays allocation-light.
	related map[string]map[string]bool
}

// New builds a Matcher. The config is validated here so a bad weights table
// fails at startup, not per job.
func New(cfg Config) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{cfg: cfg, related: map[string]map[string]bool{}}
	add := func(a, b string) {
		if m.related[a] == nil {
			m.related[a] = map[string]bool{}
		}
		m.related[a][b] = true
	}
	for skill, rel := range cfg.RelatedSkills {
		s := normalizeSkill(skill)
		for _, r := range rel {
			rn := normalizeSkill(r)
			add(s, rn)
			add(rn, s)
		}
	}
	return m, nil
}

// Score compares one candidate profile against one job posting. Identical
// inputs always produce identical results.
func (m *Matcher) Score(candidate models.CandidateProfile, job models.JobPosting) (*MatchResult, error) {
	if candidate.ExperienceYears < 0 {
		return nil, fmt.Errorf("%w: negative experience years", ErrInvalidProfile)
	}
	if candidate.ExpectedSalary < 0 {
		return nil, fmt.Errorf("%w: negative expected salary", ErrInvalidProfile)
	}

	res := &MatchResult{
		CandidateID: candidate.ID,
		JobID:       job.ID,
		Skills:      m.scoreSkills(candidate.Skills, job.RequiredSkills, job.PreferredSkills),
		Experience:  m.scoreExperience(candidate, job),
		Education:   m.scoreEducation(candidate.Education, job.EducationRequired, job.PreferredFields),
		Location:    m.scoreLocation(candidate, job),
		Salary:      m.scoreSalary(candidate.ExpectedSalary, job.SalaryMin, job.SalaryMax),
	}

	w := m.cfg.Weights
	weigh := func(fs *FactorScore, weight float64) float64 {
		fs.Score = clamp01(fs.Score)
		fs.Weight = weight
		fs.Weighted = round1(fs.Score * weight)
		return fs.Score * weight
	}
	overall := weigh(&res.Skills.FactorScore, w.Skills) +
		weigh(&res.Experience.FactorScore, w.Experience) +
		weigh(&res.Education.FactorScore, w.Education) +
		weigh(&res.Location.FactorScore, w.Location) +
		weigh(&res.Salary.FactorScore, w.Salary)

	res.OverallScore = round1(overall)
	res.Recommendation = m.recommend(res.OverallScore)
	res.AutoShortlist = res.Recommendation == RecommendAutoShortlist
	return res, nil
}

func (m *Matcher) recommend(score float64) Recommendation {
	switch {
	case score >= m.cfg.AutoShortlistThreshold:
		return RecommendAutoShortlist
	case score >= m.cfg.ManualReviewThreshold:
		return RecommendManualReview
	case score >= m.cfg.ConsiderThreshold:
		return RecommendConsider
	default:
		return RecommendNotRecommended
	}
}

// scoreSkills walks the required list and classifies each entry as an exact,
// related or transferable match. Related pays 80%, transferable 60%.
func (m *Matcher) scoreSkills(candidateSkills, required, preferred []string) SkillsScore {
	out := SkillsScore{Exact: []string{}}

	if len(required) == 0 {
		out.Score = 100
		out.Coverage = "no_requirements"
		return out
	}

	have := map[string]string{} // normalized -> original
	var haveList []string
	for _, s := range candidateSkills {
		n := normalizeSkill(s)
		if n == "" {
			continue
		}
		if _, ok := have[n]; !ok {
			have[n] = s
			haveList = append(haveList, n)
		}
	}

	var exact, related, transferable int
	for _, req := range required {
		rn := normalizeSkill(req)
		if rn == "" {
			continue
		}
		out.TotalRequired++

		if _, ok := have[rn]; ok {
			exact++
			out.Exact = append(out.Exact, req)
			continue
		}

		if match, ok := m.findRelated(rn, haveList); ok {
			related++
			out.Related = append(out.Related, SkillPair{Required: req, MatchedWith: have[match]})
			continue
		}

		if match, ok := findTransferable(rn, haveList); ok {
			transferable++
			out.Transferable = append(out.Transferable, SkillPair{Required: req, MatchedWith: have[match]})
			continue
		}

		out.Missing = append(out.Missing, req)
	}

	if out.TotalRequired == 0 {
		out.Score = 100
		out.Coverage = "no_requirements"
		return out
	}

	total := float64(out.TotalRequired)
	score := (float64(exact)*100 + float64(related)*80 + float64(transferable)*60) / total
	score = math.Min(score, 100)

	// Preferred skills are a bonus on top, never a penalty.
	if len(preferred) > 0 {
		matched := 0
		for _, p := range preferred {
			if _, ok := have[normalizeSkill(p)]; ok {
				matched++
			}
		}
		score = math.Min(score+float64(matched)/float64(len(preferred))*10, 100)
	}

	out.Score = round1(score)
	out.Coverage = fmt.Sprintf("%d/%d", exact+related+transferable, out.TotalRequired)
	return out
}

func (m *Matcher) findRelated(required string, candidate []string) (string, bool) {
	for _, c := range candidate {
		if m.related[required][c] || m.related[c][required] {
			return c, true
		}
	}
	return "", false
}

// findTransferable treats a substring relation in either direction as a
// weaker signal, e.g. "react" vs "react native" or "go" vs "golang".
func findTransferable(required string, candidate []string) (string, bool) {
	for _, c := range candidate {
		if strings.Contains(c, required) || strings.Contains(required, c) {
			return c, true
		}
	}
	return "", false
}

func (m *Matcher) scoreExperience(candidate models.CandidateProfile, job models.JobPosting) ExperienceScore {
	min := job.ExperienceMin
	max := job.ExperienceMax
	if max <= 0 {
		max = min + 5
	}

	years := candidate.ExperienceYears
	out := ExperienceScore{
		CandidateYears: years,
		RequiredRange:  fmt.Sprintf("%d-%d", min, max),
		DomainRelevant: candidate.DomainExperience == nil || *candidate.DomainExperience,
	}

	var score float64
	switch {
	case years >= min && years <= max:
		score = 100
		out.Status = "within_range"
	case years < min:
		gap := min - years
		switch {
		case gap <= 1:
			score = 85
		case gap <= 2:
			score = 70
		default:
			score = math.Max(40, 100-float64(gap)*15)
		}
		out.Status = fmt.Sprintf("under_by_%d", gap)
	default:
		over := years - max
		switch {
		case over <= 2:
			score = 90
		case over <= 5:
			score = 75
		default:
			score = 60
		}
		out.Status = fmt.Sprintf("over_by_%d", over)
	}

	if !out.DomainRelevant {
		score *= 0.8
	}
	out.Score = round1(score)
	return out
}

func (m *Matcher) scoreEducation(records []models.Education, required string, preferredFields []string) EducationScore {
	out := EducationScore{CandidateLevel: "unknown", RequiredLevel: "any"}

	if required == "" {
		out.Score = 100
		return out
	}

	reqKey := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(required)), " ", "_")
	reqLevel, ok := m.cfg.EducationLevels[reqKey]
	if !ok {
		reqLevel = m.cfg.EducationLevels["diploma"]
	}
	out.RequiredLevel = reqKey

	highest := 0
	for _, rec := range records {
		text := strings.ToLower(rec.Level + " " + rec.Field)
		for name, level := range m.cfg.EducationLevels {
			if strings.Contains(text, strings.ReplaceAll(name, "_", " ")) || strings.Contains(text, name) {
				if level > highest {
					highest = level
				}
			}
		}
	}
	out.CandidateLevel = m.levelName(highest)

	var score float64
	switch {
	case highest >= reqLevel:
		score = 100
	case highest == reqLevel-1:
		score = 80
	default:
		score = math.Max(50, 100-float64(reqLevel-highest)*20)
	}

	if len(preferredFields) > 0 {
	fields:
		for _, field := range preferredFields {
			f := strings.ToLower(field)
			for _, rec := range records {
				if strings.Contains(strings.ToLower(rec.Field+" "+rec.Level), f) {
					out.FieldMatch = true
					score = math.Min(score+10, 100)
					break fields
				}
			}
		}
	}

	out.Score = round1(score)
	return out
}

func (m *Matcher) levelName(level int) string {
	if level == 0 {
		return "unknown"
	}
	// Reverse lookup; ties are impossible in a sane hierarchy but keep the
	// result deterministic anyway.
	var names []string
	for name, l := range m.cfg.EducationLevels {
		if l == level {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "unknown"
	}
	sort.Strings(names)
	return names[0]
}

func (m *Matcher) scoreLocation(candidate models.CandidateProfile, job models.JobPosting) LocationScore {
	cand := strings.ToLower(strings.TrimSpace(candidate.Location))
	jobLoc := strings.ToLower(strings.TrimSpace(job.Location))

	switch {
	case jobLoc == "" || cand == jobLoc || (cand != "" && (strings.Contains(jobLoc, cand) || strings.Contains(cand, jobLoc))):
		return LocationScore{FactorScore: FactorScore{Score: 100}, MatchType: "exact"}
	case job.RemoteAvailable || strings.Contains(jobLoc, "remote"):
		return LocationScore{FactorScore: FactorScore{Score: 95}, MatchType: "remote"}
	case candidate.WillingToRelocate:
		return LocationScore{FactorScore: FactorScore{Score: 80}, MatchType: "willing_to_relocate"}
	case m.isMetro(cand) && m.isMetro(jobLoc):
		return LocationScore{FactorScore: FactorScore{Score: 60}, MatchType: "both_metro"}
	default:
		return LocationScore{FactorScore: FactorScore{Score: 40}, MatchType: "mismatch"}
	}
}

func (m *Matcher) isMetro(location string) bool {
	for _, metro := range m.cfg.MetroCities {
		if strings.Contains(location, metro) {
			return true
		}
	}
	return false
}

// scoreSalary compares the expectation against the posted range. Missing data
// on either side is neutral rather than penalized.
func (m *Matcher) scoreSalary(expected, min, max float64) SalaryScore {
	if expected <= 0 || max <= 0 {
		return SalaryScore{FactorScore: FactorScore{Score: 75}, MatchType: "not_specified"}
	}

	switch {
	case expected < min:
		return SalaryScore{
			FactorScore:     FactorScore{Score: 100},
			MatchType:       "below_range",
			NegotiationRoom: round2(min - expected),
		}
	case expected <= max:
		pos := 0.5
		if max > min {
			pos = (expected - min) / (max - min)
		}
		return SalaryScore{
			FactorScore: FactorScore{Score: round1(100 - pos*10)},
			MatchType:   "within_range",
		}
	default:
		excessPct := (expected - max) / max * 100
		var score float64
		switch {
		case excessPct <= 10:
			score = 75
		case excessPct <= 20:
			score = 60
		case excessPct <= 30:
			score = 45
		default:
			score = math.Max(20, 100-excessPct)
		}
		return SalaryScore{
			FactorScore:   FactorScore{Score: round1(score)},
			MatchType:     "above_range",
			ExcessPercent: round1(excessPct),
		}
	}
}

func normalizeSkill(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}

func clamp01(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
