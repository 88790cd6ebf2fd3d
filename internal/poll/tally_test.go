package poll

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/takemikazuchi11/SK-CITY-FEDERATION-sub001/internal/db/models"
)

func options(ids ...uint64) []models.PollOption {
	out := make([]models.PollOption, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.PollOption{ID: id, PollID: 1, OptionText: string(rune('A' + i)), Position: i})
	}

	return out
}

func votes(optionIDs ...uint64) []models.PollVote {
	out := make([]models.PollVote, 0, len(optionIDs))
	for i, id := range optionIDs {
		out = append(out, models.PollVote{ID: uint64(i + 1), PollID: 1, PollOptionID: id, UserID: uint64(100 + i)})
	}

	return out
}

func TestComputeTally(t *testing.T) {
	tests := []struct {
		name        string
		options     []models.PollOption
		votes       []models.PollVote
		wantTotal   int
		wantCount   []int
		wantPercent []int
	}{
		{
			name:        "two thirds rounds up",
			options:     options(1, 2, 3),
			votes:       votes(1, 1, 2),
			wantTotal:   3,
			wantCount:   []int{2, 1, 0},
			wantPercent: []int{67, 33, 0},
		},
		{
			name:        "no votes",
			options:     options(1, 2),
			wantTotal:   0,
			wantCount:   []int{0, 0},
			wantPercent: []int{0, 0},
		},
		{
			name:        "half rounds up",
			options:     options(1, 2, 3, 4, 5, 6, 7, 8),
			votes:       votes(1, 2, 3, 4, 5, 6, 7, 8),
			wantTotal:   8,
			wantCount:   []int{1, 1, 1, 1, 1, 1, 1, 1},
			wantPercent: []int{13, 13, 13, 13, 13, 13, 13, 13},
		},
		{
			name:        "sum may exceed hundred",
			options:     options(1, 2),
			votes:       votes(1, 2),
			wantTotal:   2,
			wantCount:   []int{1, 1},
			wantPercent: []int{50, 50},
		},
		{
			name:        "thirds sum below hundred",
			options:     options(1, 2, 3),
			votes:       votes(1, 2, 3),
			wantTotal:   3,
			wantCount:   []int{1, 1, 1},
			wantPercent: []int{33, 33, 33},
		},
		{
			name:        "votes of unknown options count toward total",
			options:     options(1, 2),
			votes:       votes(1, 99),
			wantTotal:   2,
			wantCount:   []int{1, 0},
			wantPercent: []int{50, 0},
		},
		{
			name:      "no options",
			votes:     votes(7),
			wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTally(tt.options, tt.votes)

			assert.Equal(t, tt.wantTotal, got.Total)
			assert.Len(t, got.Options, len(tt.options))

			for i, o := range got.Options {
				assert.Equal(t, tt.options[i].ID, o.Option.ID, "creation order")
				assert.Equal(t, tt.wantCount[i], o.Count, o.Option.OptionText)
				assert.Equal(t, tt.wantPercent[i], o.Percent, o.Option.OptionText)
			}
		})
	}
}

func TestTallyCount(t *testing.T) {
	tally := ComputeTally(options(1, 2), votes(2, 2))

	assert.Equal(t, 0, tally.Count(1))
	assert.Equal(t, 2, tally.Count(2))
	assert.Equal(t, 0, tally.Count(3))
}

func TestPercent(t *testing.T) {
	tests := []struct {
		count, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 6, 17},
		{1, 200, 1},
		{1, 201, 0},
		{3, 3, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, percent(tt.count, tt.total), "%d/%d", tt.count, tt.total)
	}
}
