package generate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kalambet/lifexp/internal/quest"
)

var (
	titleRe     = regexp.MustCompile(`(?i)Title:[ \t]*(.+)`)
	backstoryRe = regexp.MustCompile(`(?is)Backstory:\s*(.+?)\n\s*Objective:`)
	objectiveRe = regexp.MustCompile(`(?i)Objective:[ \t]*(.+)`)
	rewardRe    = regexp.MustCompile(`(?i)Reward:\s*(\d+)\s*(?:coins?|XP)`)
	iconRe      = regexp.MustCompile(`(?i)Icon:[ \t]*(.+)`)
)

// ParseText pulls quest fields out of free model output. Fields that cannot
// be found stay empty (reward 0) so the acceptance gate rejects the result.
func ParseText(raw string) quest.Generated {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	g := quest.Generated{
		Title:     clean(match(titleRe, raw)),
		Backstory: clean(match(backstoryRe, raw)),
		Objective: clean(match(objectiveRe, raw)),
		Icon:      clean(match(iconRe, raw)),
	}
	if n, err := strconv.Atoi(match(rewardRe, raw)); err == nil {
		g.Reward = n
	}
	return g
}

func match(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return m[1]
}

// clean drops markdown emphasis and folds the value onto one line.
func clean(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	return strings.Join(strings.Fields(s), " ")
}

func sanitize(g quest.Generated) quest.Generated {
	return quest.Generated{
		Title:     clean(g.Title),
		Backstory: clean(g.Backstory),
		Objective: clean(g.Objective),
		Reward:    g.Reward,
		Icon:      clean(g.Icon),
	}
}
