package poll

import "github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"

// OptionTally is the result of one option.
type OptionTally struct {
	Option  models.PollOption
	Count   int
	Percent int // 0..100, rounded half up
}

// Tally is the computed result of a poll.
// Percentages are rounded per option and may not add up to 100.
type Tally struct {
	Total   int
	Options []OptionTally
}

// ComputeTally counts votes per option. Options keep the given order.
// Total counts every vote, including votes of options not in the list.
func ComputeTally(options []models.PollOption, votes []models.PollVote) Tally {
	counts := make(map[uint64]int, len(options))
	for _, v := range votes {
		counts[v.PollOptionID]++
	}

	t := Tally{
		Total:   len(votes),
		Options: make([]OptionTally, 0, len(options)),
	}

	for _, o := range options {
		c := counts[o.ID]
		t.Options = append(t.Options, OptionTally{
			Option:  o,
			Count:   c,
			Percent: percent(c, t.Total),
		})
	}

	return t
}

// Count returns the votes of optionID, 0 if unknown.
func (t Tally) Count(optionID uint64) int {
	for _, o := range t.Options {
		if o.Option.ID == optionID {
			return o.Count
		}
	}

	return 0
}

// percent is round(count/total*100) with halves rounded up, in integers.
func percent(count, total int) int {
	if total <= 0 {
		return 0
	}

	return (count*200 + total) / (2 * total)
}
