package scraper

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
	"github.com/riskibarqy/crex-scraper/internal/platform/logging"
)

const (
	listContainerSelector = "div.match-item, div.fixture-item"
	teamNameSelector      = "span.team-name, span.team"
	matchDateSelector     = "span.match-date, span.date"
	matchTimeSelector     = "span.match-time, span.time"
	locationSelector      = "span.location, span.venue"
)

var (
	versusHintPattern = regexp.MustCompile(`(?i)vs|v/s`)
	versusPattern     = regexp.MustCompile(`(?i)([A-Za-z\s]+)\s+(?:vs|v/s)\.?\s+([A-Za-z\s]+)`)
)

type ExtractorConfig struct {
	BaseURL    string
	Normalizer *Normalizer
	Logger     *logging.Logger
}

// Extractor reads match candidates and detail sections out of crex pages.
// Every field falls back independently; only an unresolvable team pair rejects a candidate.
type Extractor struct {
	base       *url.URL
	normalizer *Normalizer
	logger     *logging.Logger
}

func NewExtractor(cfg ExtractorConfig) (*Extractor, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, &ExtractionError{Field: "base_url", Reason: "invalid base url", Err: err}
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, &ExtractionError{Field: "base_url", Reason: "base url must be absolute", Snippet: cfg.BaseURL}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = NewNormalizer(time.UTC, cfg.Logger)
	}

	return &Extractor{
		base:       base,
		normalizer: cfg.Normalizer,
		logger:     cfg.Logger,
	}, nil
}

func ParseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &ExtractionError{Field: "document", Reason: "parse html", Err: err}
	}
	return doc, nil
}

type ListExtraction struct {
	Containers int
	Candidates []match.Candidate
	Rejected   []*ExtractionError
}

func (e *Extractor) ExtractListPage(doc *goquery.Document, now time.Time) ListExtraction {
	containers := doc.Find(listContainerSelector)
	if containers.Length() == 0 {
		containers = doc.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Children().Length() == 0 && versusHintPattern.MatchString(s.Text())
		})
	}

	out := ListExtraction{Containers: containers.Length()}
	containers.Each(func(_ int, s *goquery.Selection) {
		candidate, err := e.ExtractListItem(s, now)
		if err != nil {
			e.logger.Debug("skip match container", "error", err)
			out.Rejected = append(out.Rejected, err)
			return
		}
		out.Candidates = append(out.Candidates, candidate)
	})
	return out
}

// ExtractListItem returns an ExtractionError only when two team names cannot be found.
func (e *Extractor) ExtractListItem(s *goquery.Selection, now time.Time) (match.Candidate, *ExtractionError) {
	home, away, ok := structuredTeams(s)
	if !ok {
		home, away, ok = freeTextTeams(s.Text())
	}
	if !ok {
		return match.Candidate{}, &ExtractionError{
			Field:   "teams",
			Reason:  "fewer than two team names",
			Snippet: snippet(s.Text()),
		}
	}

	dateText := firstText(s, matchDateSelector)
	timeText := firstText(s, matchTimeSelector)

	location := firstText(s, locationSelector)
	if s.Find(locationSelector).Length() == 0 {
		location = match.DefaultLocation
	}

	var matchURL string
	if href, exists := s.Find("a[href]").First().Attr("href"); exists {
		matchURL = e.ResolveURL(href)
	}

	return match.Candidate{
		HomeTeam:  home,
		AwayTeam:  away,
		MatchDate: e.normalizer.Normalize(dateText, timeText, now),
		Location:  location,
		Status:    match.StatusScheduled,
		MatchURL:  matchURL,
	}, nil
}

// ResolveURL makes href absolute against the site origin.
func (e *Extractor) ResolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return strings.TrimRight(e.base.String(), "/") + "/" + strings.TrimLeft(href, "/")
	}
	return e.base.ResolveReference(ref).String()
}

func structuredTeams(s *goquery.Selection) (string, string, bool) {
	teams := s.Find(teamNameSelector)
	if teams.Length() < 2 {
		return "", "", false
	}
	home := strings.TrimSpace(teams.Eq(0).Text())
	away := strings.TrimSpace(teams.Eq(1).Text())
	return home, away, home != "" && away != ""
}

func freeTextTeams(text string) (string, string, bool) {
	groups := versusPattern.FindStringSubmatch(text)
	if groups == nil {
		return "", "", false
	}
	home := lastLine(groups[1])
	away := firstLine(groups[2])
	return home, away, home != "" && away != ""
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func lastLine(text string) string {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func firstText(s *goquery.Selection, selector string) string {
	return strings.TrimSpace(s.Find(selector).First().Text())
}
