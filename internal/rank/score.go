package rank

import (
	"math"
	"strings"
	"time"

	"github.com/NoelSason/canvascope/internal/identity"
	"github.com/NoelSason/canvascope/internal/index"
	"github.com/NoelSason/canvascope/internal/lms"
	"github.com/NoelSason/canvascope/internal/normalize"
	"github.com/NoelSason/canvascope/internal/query"
)

// ClickStat is the externally-owned click-feedback record for one URL path.
type ClickStat struct {
	OpenCount    int
	LastOpenedAt time.Time
}

// ActiveCourse identifies the course the user is currently browsing.
type ActiveCourse struct {
	CourseID   string
	CourseName string
}

// Context carries the read-only ranking inputs owned by the caller.
// Scoring never mutates it; writes to click feedback happen out of band.
type Context struct {
	Clicks       map[string]ClickStat // keyed by URL path
	ActiveCourse *ActiveCourse
	Now          time.Time
}

func (rc Context) now() time.Time {
	if rc.Now.IsZero() {
		return time.Now()
	}
	return rc.Now
}

// typeBoost is the fixed per-type bonus, assignment highest down to
// external links. Unknown types get nothing.
var typeBoost = map[lms.ItemType]float64{
	lms.TypeAssignment:   0.30,
	lms.TypeQuiz:         0.26,
	lms.TypeFile:         0.22,
	lms.TypePDF:          0.22,
	lms.TypeSlides:       0.18,
	lms.TypeDocument:     0.18,
	lms.TypePage:         0.16,
	lms.TypeDiscussion:   0.14,
	lms.TypeVideo:        0.12,
	lms.TypeAnnouncement: 0.10,
	lms.TypeCourse:       0.08,
	lms.TypeNavigation:   0.06,
	lms.TypeLink:         0.06,
	lms.TypeExternal:     0.05,
}

// intent boost ceilings per intent key, with the mapped content types each
// intent vouches for. The summed intent boost is capped at intentBoostCap.
const intentBoostCap = 0.25

var intentTypes = map[string][]lms.ItemType{
	"assignment": {lms.TypeAssignment},
	"quiz":       {lms.TypeQuiz},
	"page":       {lms.TypePage, lms.TypeSlides, lms.TypeDocument},
	"file":       {lms.TypeFile, lms.TypePDF, lms.TypeSlides, lms.TypeDocument, lms.TypeVideo},
}

var intentMaxBoost = map[string]float64{
	"assignment": 0.12,
	"quiz":       0.12,
	"page":       0.08,
	"file":       0.08,
}

// Score computes the composite relevance score for one candidate. Signals
// are independent and order-insensitive; the final score is intentionally
// unclamped so relative ordering survives arbitrarily many stacked boosts.
func Score(c Candidate, normalizedQuery string, intent query.Intent, queryNumbers []string, rc Context) float64 {
	doc := c.Doc
	base := 1 - c.FuzzyScore
	if c.PrePass {
		base = 1.0
	}

	score := base
	score += typeBoost[doc.Item.Type]
	score += recencyBoost(doc.Item.ScannedAt, rc.now())
	score += positionBoost(doc, normalizedQuery)
	score += intentBoost(intent, doc.Item.Type)
	score += numericAlignment(queryNumbers, doc.TitleNumbers)
	score += coverageSignal(doc, normalizedQuery)
	score += activeCoursePrior(doc, rc.ActiveCourse)
	score += folderContextBoost(doc, normalizedQuery)
	score += clickBoost(doc.Item.URL, rc)
	score += dueDateBoost(doc.Item.DueAt, intent, rc.now())
	return score
}

// recencyBoost decays linearly from 0.15 at scan time to 0 over 30 days.
func recencyBoost(scannedAt *time.Time, now time.Time) float64 {
	if scannedAt == nil {
		return 0
	}
	days := now.Sub(*scannedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	if days >= 30 {
		return 0
	}
	return 0.15 * (1 - days/30)
}

// positionBoost rewards where the query lands in the title: suffix beats
// containment beats in-order token presence. Tiers are mutually exclusive.
// Containment is token-boundary aware: "b" never matches inside "lab".
func positionBoost(doc *index.Doc, normalizedQuery string) float64 {
	title := doc.TitleAlias
	if title == "" {
		title = doc.Title
	}
	if title == "" || normalizedQuery == "" {
		return 0
	}
	if title == normalizedQuery || strings.HasSuffix(title, " "+normalizedQuery) {
		return 0.60
	}
	if strings.Contains(" "+title+" ", " "+normalizedQuery+" ") {
		return 0.35
	}
	if tokensInOrder(normalize.Tokens(normalizedQuery), normalize.Tokens(title)) {
		return 0.20
	}
	return 0
}

// tokensInOrder reports whether want appears as a subsequence of have.
func tokensInOrder(want, have []string) bool {
	if len(want) == 0 {
		return false
	}
	i := 0
	for _, tok := range have {
		if tok == want[i] {
			i++
			if i == len(want) {
				return true
			}
		}
	}
	return false
}

func intentBoost(in query.Intent, itemType lms.ItemType) float64 {
	confidences := map[string]float64{
		"assignment": in.Assignment,
		"quiz":       in.Quiz,
		"page":       in.Page,
		"file":       in.File,
	}
	total := 0.0
	for key, conf := range confidences {
		if conf <= 0 {
			continue
		}
		for _, t := range intentTypes[key] {
			if t == itemType {
				total += intentMaxBoost[key] * conf
				break
			}
		}
	}
	if total > intentBoostCap {
		total = intentBoostCap
	}
	return total
}

// numericAlignment is the dominant disambiguator between "homework 4" and
// "homework 14": aligned query numbers earn a small bonus, mismatched ones
// a larger penalty.
func numericAlignment(queryNumbers, titleNumbers []string) float64 {
	if len(queryNumbers) == 0 {
		return 0
	}
	titleSet := make(map[string]bool, len(titleNumbers))
	for _, n := range titleNumbers {
		titleSet[n] = true
	}
	aligned := 0
	for _, n := range queryNumbers {
		if titleSet[n] {
			aligned++
		}
	}
	mismatched := len(queryNumbers) - aligned
	total := float64(len(queryNumbers))
	return 0.10*float64(aligned)/total - 0.18*float64(mismatched)/total
}

// coverageSignal rewards high coverage of significant query tokens in
// title+folder+module text and penalizes poor coverage of multi-token
// queries.
func coverageSignal(doc *index.Doc, normalizedQuery string) float64 {
	sig := normalize.SignificantTokens(normalizedQuery)
	if len(sig) == 0 {
		return 0
	}
	text := doc.TitleAlias + " " + doc.Folder + " " + doc.Module
	found := 0
	for _, tok := range sig {
		if tokenInText(tok, text) {
			found++
		}
	}
	coverage := float64(found) / float64(len(sig))
	if coverage >= 0.8 {
		return 0.12
	}
	if coverage < 0.5 && len(sig) >= 2 {
		return -0.15 * (1 - coverage)
	}
	return 0
}

// activeCoursePrior nudges items from the course the user is browsing.
// An ID match wins; a name match alone earns a smaller prior.
func activeCoursePrior(doc *index.Doc, active *ActiveCourse) float64 {
	if active == nil {
		return 0
	}
	if active.CourseID != "" && string(doc.Item.CourseID) == active.CourseID {
		return 0.12
	}
	if active.CourseName != "" && doc.Course == normalize.Normalize(active.CourseName) {
		return 0.08
	}
	return 0
}

// folderContextBoost is proportional to the fraction of significant query
// tokens found in folder/module text, capped at 0.35.
func folderContextBoost(doc *index.Doc, normalizedQuery string) float64 {
	sig := normalize.SignificantTokens(normalizedQuery)
	if len(sig) == 0 {
		return 0
	}
	text := doc.Folder + " " + doc.Module
	if strings.TrimSpace(text) == "" {
		return 0
	}
	found := 0
	for _, tok := range sig {
		if tokenInText(tok, text) {
			found++
		}
	}
	boost := 0.35 * float64(found) / float64(len(sig))
	if boost > 0.35 {
		boost = 0.35
	}
	return boost
}

// clickBoost combines an open-frequency term with a last-opened recency
// term, capped at 0.12 total.
func clickBoost(rawURL string, rc Context) float64 {
	if len(rc.Clicks) == 0 {
		return 0
	}
	path := identity.URLPath(rawURL)
	if path == "" {
		return 0
	}
	stat, ok := rc.Clicks[path]
	if !ok || stat.OpenCount <= 0 {
		return 0
	}
	freq := math.Log2(1+float64(stat.OpenCount)) * 0.025
	if freq > 0.08 {
		freq = 0.08
	}
	rec := 0.0
	if !stat.LastOpenedAt.IsZero() {
		days := rc.now().Sub(stat.LastOpenedAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		rec = 0.05 - days*0.0036
		if rec < 0 {
			rec = 0
		}
	}
	total := freq + rec
	if total > 0.12 {
		total = 0.12
	}
	return total
}

// dueDateBoost applies only under assignment/quiz intent: upcoming work
// within 14 days gets a decaying bonus, recently-past work a small tail.
func dueDateBoost(dueAt *time.Time, in query.Intent, now time.Time) float64 {
	if dueAt == nil || (in.Assignment <= 0 && in.Quiz <= 0) {
		return 0
	}
	days := dueAt.Sub(now).Hours() / 24
	switch {
	case days >= 0 && days <= 14:
		b := 0.18 - days*0.012
		if b < 0 {
			b = 0
		}
		return b
	case days < 0 && days >= -30:
		b := 0.05 + days*0.002
		if b < 0 {
			b = 0
		}
		return b
	default:
		return 0
	}
}
