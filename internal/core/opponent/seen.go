package opponent

import "github.com/samber/lo"

// SeenSet tracks opponent ids already handed to the callback target during one job.
// It is owned by a single pagination loop and is not safe for concurrent use.
type SeenSet struct {
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

func (s *SeenSet) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *SeenSet) Len() int { return len(s.ids) }

// Unseen returns the records whose id is not in the set, keeping input order and
// dropping repeated ids within the input itself.
func (s *SeenSet) Unseen(records []Opponent) []Opponent {
	fresh := lo.Filter(records, func(r Opponent, _ int) bool { return !s.Has(r.ID) })
	return lo.UniqBy(fresh, func(r Opponent) string { return r.ID })
}

func (s *SeenSet) Add(records []Opponent) {
	for _, r := range records {
		s.ids[r.ID] = struct{}{}
	}
}
