package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/riskibarqy/crex-scraper/internal/domain/match"
)

const minScorecardColumns = 4

// ExtractDetail reads each section independently; a missing section is left empty.
func (e *Extractor) ExtractDetail(doc *goquery.Document) match.DetailPayload {
	return match.DetailPayload{
		Info:      extractInfo(doc.Selection),
		Squads:    extractSquads(doc.Selection),
		Live:      extractLive(doc.Selection),
		Scorecard: extractScorecard(doc.Selection),
	}
}

func extractInfo(root *goquery.Selection) match.InfoMap {
	var info match.InfoMap
	section := root.Find("div.match-info, div.info-section").First()
	section.Find("div.info-item").Each(func(_ int, item *goquery.Selection) {
		label := item.Find("span.label").First()
		value := item.Find("span.value").First()
		if label.Length() == 0 || value.Length() == 0 {
			return
		}
		info.Set(strings.TrimSpace(label.Text()), strings.TrimSpace(value.Text()))
	})
	return info
}

func extractSquads(root *goquery.Selection) match.SquadRoster {
	var roster match.SquadRoster
	root.Find("div.squad-section, div.team-squad").Each(func(_ int, section *goquery.Selection) {
		name := section.Find("h3.team-name").First()
		if name.Length() == 0 {
			return
		}
		squad := match.TeamSquad{Team: strings.TrimSpace(name.Text()), Players: []string{}}
		section.Find("div.player, div.player-name").Each(func(_ int, p *goquery.Selection) {
			squad.Players = append(squad.Players, strings.TrimSpace(p.Text()))
		})
		roster.Teams = append(roster.Teams, squad)
	})
	return roster
}

func extractLive(root *goquery.Selection) match.LiveState {
	var live match.LiveState
	section := root.Find("div.live-section, div.live-score").First()
	if section.Length() == 0 {
		return live
	}

	section.Find("div.score").Each(func(_ int, score *goquery.Selection) {
		team := score.Find("span.team").First()
		runs := score.Find("span.runs").First()
		if team.Length() == 0 || runs.Length() == 0 {
			return
		}
		live.Scores = append(live.Scores, match.LiveScore{
			Team: strings.TrimSpace(team.Text()),
			Runs: strings.TrimSpace(runs.Text()),
		})
	})

	if over := section.Find("div.current-over").First(); over.Length() > 0 {
		live.CurrentOver = strings.TrimSpace(over.Text())
	}
	return live
}

func extractScorecard(root *goquery.Selection) match.Scorecard {
	var card match.Scorecard
	root.Find("div.innings, div.innings-section").Each(func(i int, section *goquery.Selection) {
		innings := match.Innings{Number: i + 1}

		if table := section.Find("table.batting-table, table.scorecard-table").First(); table.Length() > 0 {
			innings.Batting = []match.BattingRow{}
			eachDataRow(table, func(cols []string) {
				innings.Batting = append(innings.Batting, match.BattingRow{
					Player:    cols[0],
					Dismissal: cols[1],
					Runs:      cols[2],
					Balls:     cols[3],
					Fours:     column(cols, 4),
					Sixes:     column(cols, 5),
				})
			})
		}

		if table := section.Find("table.bowling-table, table.bowling-scorecard").First(); table.Length() > 0 {
			innings.Bowling = []match.BowlingRow{}
			eachDataRow(table, func(cols []string) {
				innings.Bowling = append(innings.Bowling, match.BowlingRow{
					Player:  cols[0],
					Overs:   cols[1],
					Maidens: cols[2],
					Runs:    cols[3],
					Wickets: column(cols, 4),
				})
			})
		}

		card.Innings = append(card.Innings, innings)
	})
	return card
}

// eachDataRow skips the header row and rows that are too short to be a player line.
func eachDataRow(table *goquery.Selection, fn func(cols []string)) {
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < minScorecardColumns {
			return
		}
		cols := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			cols = append(cols, strings.TrimSpace(cell.Text()))
		})
		fn(cols)
	})
}

func column(cols []string, idx int) string {
	if idx < len(cols) {
		return cols[idx]
	}
	return "0"
}
