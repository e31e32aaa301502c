package quest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sweepText = "Title: Sweep the Hall\nBackstory: Dust gathers...\nObjective: sweep\nReward: 50 XP\nIcon: 🧹"

func TestAccept_SweepTheHall(t *testing.T) {
	q, err := Accept(sweepText)
	require.NoError(t, err)

	assert.Equal(t, Quest{
		Title:     "Sweep the Hall",
		Backstory: "Dust gathers...",
		Objective: "sweep",
		Reward:    50,
		Icon:      "🧹",
		Status:    StatusPending,
	}, q)
	assert.False(t, q.Persisted())
}

func TestParse_ValidBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Quest
	}{
		{
			name: "multi-line backstory",
			text: "Title: Brew of Awakening\nBackstory: The fog clings.\nA kettle waits.\nObjective: make coffee\nReward: 850 XP\nIcon: 🔮",
			want: Quest{Title: "Brew of Awakening", Backstory: "The fog clings.\nA kettle waits.", Objective: "make coffee", Reward: 850, Icon: "🔮", Status: StatusPending},
		},
		{
			name: "no icon uses default",
			text: "Title: Sanity Run\nBackstory: Madness brews.\nObjective: jog\nReward: 900 XP",
			want: Quest{Title: "Sanity Run", Backstory: "Madness brews.", Objective: "jog", Reward: 900, Icon: DefaultIcon, Status: StatusPending},
		},
		{
			name: "labels ignore case and surrounding whitespace",
			text: "\n  title: Scrolls\nBACKSTORY:   Tomes await\nobjective: study\nreward: 1000xp\nicon: 📖  \n",
			want: Quest{Title: "Scrolls", Backstory: "Tomes await", Objective: "study", Reward: 1000, Icon: "📖", Status: StatusPending},
		},
		{
			name: "crlf line endings",
			text: "Title: A\r\nBackstory: B\r\nObjective: C\r\nReward: 5 XP",
			want: Quest{Title: "A", Backstory: "B", Objective: "C", Reward: 5, Icon: DefaultIcon, Status: StatusPending},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Parse(tt.text)
			require.True(t, p.Valid(), "format error: %v", p.Format)
			assert.Equal(t, tt.want, p.Quest)

			q, err := Accept(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestCheckFormat_Rejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"missing title", "Backstory: b\nObjective: o\nReward: 5 XP"},
		{"empty title", "Title:   \nBackstory: b\nObjective: o\nReward: 5 XP"},
		{"missing backstory", "Title: t\nObjective: o\nReward: 5 XP"},
		{"missing objective", "Title: t\nBackstory: b\nReward: 5 XP"},
		{"missing reward", "Title: t\nBackstory: b\nObjective: o"},
		{"reward in coins", "Title: t\nBackstory: b\nObjective: o\nReward: 5 coins"},
		{"negative reward", "Title: t\nBackstory: b\nObjective: o\nReward: -5 XP"},
		{"leading junk", "Here is your quest:\nTitle: t\nBackstory: b\nObjective: o\nReward: 5 XP"},
		{"trailing junk", "Title: t\nBackstory: b\nObjective: o\nReward: 5 XP\nIcon: x\nEnjoy!"},
		{"text after reward", "Title: t\nBackstory: b\nObjective: o\nReward: 5 XP\nGood luck"},
		{"empty icon", "Title: t\nBackstory: b\nObjective: o\nReward: 5 XP\nIcon:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckFormat(tt.text)
			require.Error(t, err)
			var fe *FormatError
			assert.True(t, errors.As(err, &fe))

			_, err = Accept(tt.text)
			assert.Error(t, err)
		})
	}
}

func TestCheckFormat_BackstoryMentioningObjective(t *testing.T) {
	text := "Title: t\nBackstory: the elders said\nObjective: was lost long ago\nyet hope remains\nObjective: o\nReward: 5 XP"
	require.NoError(t, CheckFormat(text))
}

func TestZeroReward_PassesFormatFailsAcceptance(t *testing.T) {
	text := "Title: t\nBackstory: b\nObjective: o\nReward: 0 XP"

	p := Parse(text)
	assert.True(t, p.Valid())
	assert.Equal(t, 0, p.Quest.Reward)

	_, err := Accept(text)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrZeroReward))

	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "reward", fe.Field)
}

func TestEmptyBackstory_PassesFormatFailsAcceptance(t *testing.T) {
	text := "Title: t\nBackstory:\nObjective: o\nReward: 5 XP"

	assert.NoError(t, CheckFormat(text))

	_, err := Accept(text)
	assert.True(t, errors.Is(err, ErrMissingField))
}

func TestExtract_IndependentOfFormat(t *testing.T) {
	// Missing Reward: the format gate fails, but the other fields still come out.
	text := "Title: Lost Scroll\nBackstory: Ink fades.\nObjective: find it"

	p := Parse(text)
	assert.False(t, p.Valid())
	assert.Equal(t, "Lost Scroll", p.Quest.Title)
	assert.Equal(t, "Ink fades.", p.Quest.Backstory)
	assert.Equal(t, "find it", p.Quest.Objective)
	assert.Equal(t, 0, p.Quest.Reward)
	assert.Equal(t, DefaultIcon, p.Quest.Icon)

	assert.Equal(t, Extract(text), p.Quest)
}

func TestParse_Deterministic(t *testing.T) {
	inputs := []string{sweepText, "Title: t\nBackstory: b\nObjective: o\nReward: 0 XP", "garbage"}
	for _, in := range inputs {
		a, b := Parse(in), Parse(in)
		assert.Equal(t, a.Quest, b.Quest)
		assert.Equal(t, a.Valid(), b.Valid())

		_, errA := Accept(in)
		_, errB := Accept(in)
		assert.Equal(t, errA == nil, errB == nil)
	}
}

func TestValidate_ReportsEveryMissingField(t *testing.T) {
	err := Validate(Quest{})
	require.Error(t, err)
	for _, field := range []string{"title", "backstory", "objective", "reward"} {
		assert.Contains(t, err.Error(), field)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	g := Generated{Title: "Sweep the Hall", Backstory: "Dust gathers...", Objective: "sweep", Reward: 50, Icon: "🧹"}
	assert.Equal(t, sweepText, Format(g))

	g.Icon = ""
	text := Format(g)
	assert.NotContains(t, text, "Icon:")
	require.NoError(t, CheckFormat(text))
}

func TestText_RendersQuest(t *testing.T) {
	q, err := Accept(sweepText)
	require.NoError(t, err)
	assert.Equal(t, sweepText, Text(q))
}
