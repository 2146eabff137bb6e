package models

import "fmt"

// RankingSort selects a ranked list.
type RankingSort string

const (
	SortHot           RankingSort = "hot"
	SortControversial RankingSort = "controversial"
	SortTop           RankingSort = "top"
)

// ParseRankingSort defaults to hot for an empty value.
func ParseRankingSort(s string) (RankingSort, error) {
	switch RankingSort(s) {
	case "":
		return SortHot, nil
	case SortHot, SortControversial, SortTop:
		return RankingSort(s), nil
	}
	return "", fmt.Errorf("unknown sort %q", s)
}

// Ranking is the score sheet of one target.
type Ranking struct {
	TargetType         TargetType `json:"target_type"`
	TargetID           string     `json:"target_id"`
	HotScore           float64    `json:"hot_score"`
	ControversialScore float64    `json:"controversial_score"`
	Upvotes            int        `json:"upvotes"`
	Downvotes          int        `json:"downvotes"`
}

// RankedThread is one entry of a ranked thread list.
type RankedThread struct {
	Thread  Thread  `json:"thread"`
	Ranking Ranking `json:"ranking"`
}
