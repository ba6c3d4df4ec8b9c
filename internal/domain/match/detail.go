package match

// DetailPayload bundles the sections scraped from a match page.
type DetailPayload struct {
	URL       string      `json:"url"`
	Info      InfoMap     `json:"info"`
	Squads    SquadRoster `json:"squads"`
	Live      LiveState   `json:"live"`
	Scorecard Scorecard   `json:"scorecard"`
}

type InfoEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// InfoMap keeps info items in page order.
type InfoMap struct {
	Entries []InfoEntry `json:"entries"`
}

func (m InfoMap) Get(label string) (string, bool) {
	for _, e := range m.Entries {
		if e.Label == label {
			return e.Value, true
		}
	}
	return "", false
}

// Set replaces an existing label in place or appends it.
func (m *InfoMap) Set(label, value string) {
	for i := range m.Entries {
		if m.Entries[i].Label == label {
			m.Entries[i].Value = value
			return
		}
	}
	m.Entries = append(m.Entries, InfoEntry{Label: label, Value: value})
}

type TeamSquad struct {
	Team    string   `json:"team"`
	Players []string `json:"players"`
}

type SquadRoster struct {
	Teams []TeamSquad `json:"teams"`
}

func (r SquadRoster) Players(teamName string) []string {
	for _, s := range r.Teams {
		if s.Team == teamName {
			return s.Players
		}
	}
	return nil
}

type LiveScore struct {
	Team string `json:"team"`
	Runs string `json:"runs"`
}

type LiveState struct {
	Scores      []LiveScore `json:"scores"`
	CurrentOver string      `json:"current_over,omitempty"`
}

// IsEmpty reports whether the page carried no live data at all.
func (s LiveState) IsEmpty() bool {
	return len(s.Scores) == 0 && s.CurrentOver == ""
}

type BattingRow struct {
	Player    string `json:"player"`
	Dismissal string `json:"dismissal"`
	Runs      string `json:"runs"`
	Balls     string `json:"balls"`
	Fours     string `json:"fours"`
	Sixes     string `json:"sixes"`
}

type BowlingRow struct {
	Player  string `json:"player"`
	Overs   string `json:"overs"`
	Maidens string `json:"maidens"`
	Runs    string `json:"runs"`
	Wickets string `json:"wickets"`
}

type Innings struct {
	Number  int          `json:"number"`
	Batting []BattingRow `json:"batting,omitempty"`
	Bowling []BowlingRow `json:"bowling,omitempty"`
}

type Scorecard struct {
	Innings []Innings `json:"innings"`
}
