package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/pyvlad/quizzz-spa/internal/domain"
)

type playKey struct {
	userID  int64
	roundID int64
}

// Store is an in-memory implementation of the round, play and user repositories.
// It enforces the same uniqueness rules as the Postgres schema.
type Store struct {
	mu sync.RWMutex

	nextID      int64
	users       map[int64]domain.User
	tournaments map[int64]domain.Tournament
	rounds      map[int64]domain.Round
	roundByQuiz map[int64]int64
	plays       map[int64]domain.Play
	playByKey   map[playKey]int64
	answers     map[int64][]domain.PlayAnswer
}

func NewStore() *Store {
	return &Store{
		users:       make(map[int64]domain.User),
		tournaments: make(map[int64]domain.Tournament),
		rounds:      make(map[int64]domain.Round),
		roundByQuiz: make(map[int64]int64),
		plays:       make(map[int64]domain.Play),
		playByKey:   make(map[playKey]int64),
		answers:     make(map[int64][]domain.PlayAnswer),
	}
}

func (s *Store) idLocked() int64 {
	s.nextID++
	return s.nextID
}

// PutUser adds or renames a user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// GetUsers returns the known users among ids; unknown ids are left out.
func (s *Store) GetUsers(_ context.Context, ids []int64) (map[int64]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *Store) CreateTournament(_ context.Context, t *domain.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.idLocked()
	s.tournaments[t.ID] = *t
	return nil
}

func (s *Store) GetTournament(_ context.Context, tournamentID int64) (domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return domain.Tournament{}, domain.ErrTournamentNotFound
	}
	return t, nil
}

// ListTournaments returns the community's tournaments, newest first.
func (s *Store) ListTournaments(_ context.Context, communityID int64) ([]domain.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Tournament, 0)
	for _, t := range s.tournaments {
		if t.CommunityID == communityID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Tournament) int {
		if c := b.TimeCreated.Compare(a.TimeCreated); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

func (s *Store) UpdateTournament(_ context.Context, t domain.Tournament) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tournaments[t.ID]
	if !ok {
		return domain.ErrTournamentNotFound
	}
	current.Name, current.IsActive = t.Name, t.IsActive
	s.tournaments[t.ID] = current
	return nil
}

// DeleteTournament cascades to the tournament's rounds, plays and answers.
func (s *Store) DeleteTournament(_ context.Context, tournamentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[tournamentID]; !ok {
		return domain.ErrTournamentNotFound
	}
	for id, r := range s.rounds {
		if r.TournamentID == tournamentID {
			s.deleteRoundLocked(id)
		}
	}
	delete(s.tournaments, tournamentID)
	return nil
}

func (s *Store) CreateRound(_ context.Context, r *domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tournaments[r.TournamentID]; !ok {
		return domain.ErrTournamentNotFound
	}
	if _, taken := s.roundByQuiz[r.QuizID]; taken {
		return domain.ErrQuizAlreadyScheduled
	}
	r.ID = s.idLocked()
	s.rounds[r.ID] = *r
	s.roundByQuiz[r.QuizID] = r.ID
	return nil
}

func (s *Store) UpdateRound(_ context.Context, r domain.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rounds[r.ID]
	if !ok {
		return domain.ErrRoundNotFound
	}
	if owner, taken := s.roundByQuiz[r.QuizID]; taken && owner != r.ID {
		return domain.ErrQuizAlreadyScheduled
	}
	delete(s.roundByQuiz, current.QuizID)
	current.QuizID, current.StartTime, current.FinishTime = r.QuizID, r.StartTime, r.FinishTime
	s.rounds[r.ID] = current
	s.roundByQuiz[r.QuizID] = r.ID
	return nil
}

func (s *Store) GetRound(_ context.Context, roundID int64) (domain.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[roundID]
	if !ok {
		return domain.Round{}, domain.ErrRoundNotFound
	}
	return r, nil
}

// ListRounds returns the tournament's rounds ordered by start time.
func (s *Store) ListRounds(_ context.Context, tournamentID int64) ([]domain.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Round, 0)
	for _, r := range s.rounds {
		if r.TournamentID == tournamentID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.Round) int {
		if c := a.StartTime.Compare(b.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) CountRounds(_ context.Context, tournamentID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rounds {
		if r.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ScheduledQuizIDs(_ context.Context, quizIDs []int64) (map[int64]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]bool, len(quizIDs))
	for _, id := range quizIDs {
		if _, taken := s.roundByQuiz[id]; taken {
			out[id] = true
		}
	}
	return out, nil
}

func (s *Store) DeleteRound(_ context.Context, roundID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rounds[roundID]; !ok {
		return domain.ErrRoundNotFound
	}
	s.deleteRoundLocked(roundID)
	return nil
}

func (s *Store) deleteRoundLocked(roundID int64) {
	r := s.rounds[roundID]
	for id, p := range s.plays {
		if p.RoundID != roundID {
			continue
		}
		delete(s.answers, id)
		delete(s.playByKey, playKey{p.UserID, p.RoundID})
		delete(s.plays, id)
	}
	delete(s.roundByQuiz, r.QuizID)
	delete(s.rounds, roundID)
}

func (s *Store) GetPlay(_ context.Context, userID, roundID int64) (domain.Play, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.playByKey[playKey{userID, roundID}]
	if !ok {
		return domain.Play{}, domain.ErrPlayNotFound
	}
	return s.plays[id], nil
}

func (s *Store) CreatePlay(_ context.Context, p *domain.Play) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rounds[p.RoundID]; !ok {
		return domain.ErrRoundNotFound
	}
	key := playKey{p.UserID, p.RoundID}
	if _, exists := s.playByKey[key]; exists {
		return domain.ErrPlayExists
	}
	p.ID = s.idLocked()
	s.plays[p.ID] = *p
	s.playByKey[key] = p.ID
	return nil
}

// SubmitPlay stores the answers and the submitted play under one lock, so readers
// see either none or all of it.
func (s *Store) SubmitPlay(_ context.Context, p domain.Play, answers []domain.PlayAnswer) ([]domain.PlayAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.plays[p.ID]
	if !ok {
		return nil, domain.ErrPlayNotFound
	}
	if current.IsSubmitted {
		return nil, domain.ErrAlreadyPlayed
	}

	stored := make([]domain.PlayAnswer, len(answers))
	for i, a := range answers {
		a.ID = s.idLocked()
		a.PlayID = p.ID
		stored[i] = a
	}
	s.answers[p.ID] = stored
	s.plays[p.ID] = p
	return slices.Clone(stored), nil
}

// ListPlays returns every play of the round, submitted or not, by id.
func (s *Store) ListPlays(_ context.Context, roundID int64) ([]domain.Play, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterPlaysLocked(func(p domain.Play) bool { return p.RoundID == roundID }), nil
}

func (s *Store) ListUserPlays(_ context.Context, userID, tournamentID int64) ([]domain.Play, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterPlaysLocked(func(p domain.Play) bool {
		return p.UserID == userID && s.rounds[p.RoundID].TournamentID == tournamentID
	}), nil
}

func (s *Store) filterPlaysLocked(keep func(domain.Play) bool) []domain.Play {
	out := make([]domain.Play, 0)
	for _, p := range s.plays {
		if keep(p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.Play) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *Store) ListPlayAnswers(_ context.Context, playID int64) ([]domain.PlayAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.PlayAnswer{}, s.answers[playID]...), nil
}

func (s *Store) ListRoundAnswers(_ context.Context, roundID int64) ([]domain.PlayAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PlayAnswer, 0)
	for id, p := range s.plays {
		if p.RoundID == roundID {
			out = append(out, s.answers[id]...)
		}
	}
	slices.SortFunc(out, func(a, b domain.PlayAnswer) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *Store) CountPlays(_ context.Context, roundID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.plays {
		if p.RoundID == roundID {
			n++
		}
	}
	return n, nil
}
