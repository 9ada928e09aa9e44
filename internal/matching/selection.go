package matching

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spigell/mentor-matcher/internal/participant"
)

var (
	ErrUnknownMentor = errors.New("unknown mentor")
	ErrNoCapacity    = errors.New("mentor has no capacity left")
)

// Selection tracks manual picks made during review. It keeps mentee->mentor and
// mentor->mentees in sync and never lets a mentor exceed its starting capacity.
type Selection struct {
	mu       sync.Mutex
	capacity map[string]int
	byMentee map[string]string
	byMentor map[string]map[string]struct{}
}

func NewSelection(mentors []*participant.Mentor) *Selection {
	s := &Selection{
		capacity: make(map[string]int, len(mentors)),
		byMentee: make(map[string]string),
		byMentor: make(map[string]map[string]struct{}, len(mentors)),
	}
	for _, m := range mentors {
		if m == nil {
			continue
		}
		id := strings.TrimSpace(m.ID())
		s.capacity[id] = max(m.CapacityRemaining, 0)
		s.byMentor[id] = make(map[string]struct{})
	}
	return s
}

// Select assigns mentee to mentor, moving it away from a previous pick.
// On error the previous pick is kept.
func (s *Selection) Select(menteeID, mentorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mentees, ok := s.byMentor[mentorID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMentor, mentorID)
	}

	current, selected := s.byMentee[menteeID]
	if selected && current == mentorID {
		return nil
	}
	if len(mentees) >= s.capacity[mentorID] {
		return fmt.Errorf("%w: %s", ErrNoCapacity, mentorID)
	}

	if selected {
		delete(s.byMentor[current], menteeID)
	}
	mentees[menteeID] = struct{}{}
	s.byMentee[menteeID] = mentorID

	return nil
}

// Deselect drops the pick of a mentee. It reports whether there was one.
func (s *Selection) Deselect(menteeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	mentorID, ok := s.byMentee[menteeID]
	if !ok {
		return false
	}
	delete(s.byMentee, menteeID)
	delete(s.byMentor[mentorID], menteeID)
	return true
}

func (s *Selection) MentorOf(menteeID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mentorID, ok := s.byMentee[menteeID]
	return mentorID, ok
}

// MenteesOf returns the mentees picked for a mentor in id order.
func (s *Selection) MenteesOf(mentorID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.byMentor[mentorID]))
	for id := range s.byMentor[mentorID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Remaining is the capacity a mentor has left after the current picks.
func (s *Selection) Remaining(mentorID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.capacity[mentorID] - len(s.byMentor[mentorID])
}

// Assignments returns a copy of the mentee->mentor picks.
func (s *Selection) Assignments() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.byMentee))
	for k, v := range s.byMentee {
		out[k] = v
	}
	return out
}
