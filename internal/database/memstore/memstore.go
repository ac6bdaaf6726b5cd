// Package memstore keeps every collection in process memory. It backs local
// runs without MongoDB and the service tests, and honours the same
// conditional-write contract as the Mongo repository.
package memstore

import (
	"context"
	"github.com/google/uuid"
	"prism/entity"
	"sort"
	"sync"
	"time"
)

type Store struct {
	mu            sync.RWMutex
	opportunities map[string]entity.Opportunity
	clients       map[string]entity.Client
	statuses      map[string]entity.ClientOpportunityStatus
	requests      map[string]entity.RestoreRequest
	tasks         map[string]entity.FollowUpTask
	threads       map[string]entity.ChatThread
	messages      map[string][]entity.ChatMessage
	activity      []entity.ActivityEntry
	apiKeys       map[string]string
	now           func() time.Time
}

func New() *Store {
	return &Store{
		opportunities: make(map[string]entity.Opportunity),
		clients:       make(map[string]entity.Client),
		statuses:      make(map[string]entity.ClientOpportunityStatus),
		requests:      make(map[string]entity.RestoreRequest),
		tasks:         make(map[string]entity.FollowUpTask),
		threads:       make(map[string]entity.ChatThread),
		messages:      make(map[string][]entity.ChatMessage),
		apiKeys:       make(map[string]string),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used to stamp appended messages.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// opportunities

func (s *Store) InsertOpportunity(_ context.Context, opp *entity.Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.opportunities[opp.ID]; ok {
		return entity.ErrAlreadyExists
	}
	s.opportunities[opp.ID] = *opp
	return nil
}

func (s *Store) GetOpportunity(_ context.Context, id string) (*entity.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	opp, ok := s.opportunities[id]
	if !ok {
		return nil, nil
	}
	return &opp, nil
}

func (s *Store) ListOpportunities(_ context.Context, f entity.OpportunityFilter) ([]entity.Opportunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids map[string]bool
	if f.IDs != nil {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}

	var result []entity.Opportunity
	for _, opp := range s.opportunities {
		if f.AgencyID != "" && opp.AgencyID != f.AgencyID {
			continue
		}
		if ids != nil && !ids[opp.ID] {
			continue
		}
		if f.Status != "" && opp.Status != f.Status {
			continue
		}
		if f.DeadlineBefore != nil && (opp.Deadline == nil || !opp.Deadline.Before(*f.DeadlineBefore)) {
			continue
		}
		result = append(result, opp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) SwapOpportunityStatus(_ context.Context, id string, from, to entity.OpportunityStatus, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opp, ok := s.opportunities[id]
	if !ok || opp.Status != from {
		return false, nil
	}
	opp.Status = to
	opp.UpdatedAt = at
	s.opportunities[id] = opp
	return true, nil
}

// clients

func (s *Store) InsertClient(_ context.Context, client *entity.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[client.ID]; ok {
		return entity.ErrAlreadyExists
	}
	s.clients[client.ID] = *client
	return nil
}

func (s *Store) GetClient(_ context.Context, id string) (*entity.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) ListClients(_ context.Context, agencyID string) ([]entity.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []entity.Client
	for _, c := range s.clients {
		if c.AgencyID == agencyID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// statuses

func (s *Store) GetStatus(_ context.Context, id string) (*entity.ClientOpportunityStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statuses[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (s *Store) FindStatus(_ context.Context, opportunityID, clientID string) (*entity.ClientOpportunityStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.statuses {
		if st.OpportunityID == opportunityID && st.ClientID == clientID {
			return &st, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertStatus(_ context.Context, status *entity.ClientOpportunityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.statuses {
		if st.ID == status.ID || (st.OpportunityID == status.OpportunityID && st.ClientID == status.ClientID) {
			return entity.ErrAlreadyExists
		}
	}
	s.statuses[status.ID] = *status
	return nil
}

func (s *Store) SwapStatus(_ context.Context, next *entity.ClientOpportunityStatus, expectedState entity.ResponseState, expectedVersion int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.statuses[next.ID]
	if !ok || st.ResponseState != expectedState || st.Version != expectedVersion {
		return false, nil
	}
	stored := *next
	stored.Version = expectedVersion + 1
	s.statuses[next.ID] = stored
	return true, nil
}

func (s *Store) ListStatuses(_ context.Context, f entity.StatusFilter) ([]entity.ClientOpportunityStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []entity.ClientOpportunityStatus
	for _, st := range s.statuses {
		if f.AgencyID != "" && st.AgencyID != f.AgencyID {
			continue
		}
		if f.OpportunityID != "" && st.OpportunityID != f.OpportunityID {
			continue
		}
		if f.ClientID != "" && st.ClientID != f.ClientID {
			continue
		}
		if len(f.States) > 0 && !containsState(f.States, st.ResponseState) {
			continue
		}
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func containsState(states []entity.ResponseState, s entity.ResponseState) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

// restore requests

func (s *Store) InsertRestoreRequest(_ context.Context, req *entity.RestoreRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.Status == entity.RestorePending {
		for _, r := range s.requests {
			if r.Status == entity.RestorePending && r.OpportunityID == req.OpportunityID && r.ClientID == req.ClientID {
				return entity.ErrDuplicateRequest
			}
		}
	}
	s.requests[req.ID] = *req
	return nil
}

func (s *Store) GetRestoreRequest(_ context.Context, id string) (*entity.RestoreRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *Store) FindPendingRestoreRequest(_ context.Context, opportunityID, clientID string) (*entity.RestoreRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.requests {
		if r.Status == entity.RestorePending && r.OpportunityID == opportunityID && r.ClientID == clientID {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *Store) ResolveRestoreRequest(_ context.Context, req *entity.RestoreRequest, from entity.RestoreStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[req.ID]
	if !ok || r.Status != from {
		return false, nil
	}
	if req.Status == entity.RestorePending {
		for id, other := range s.requests {
			if id != req.ID && other.Status == entity.RestorePending &&
				other.OpportunityID == req.OpportunityID && other.ClientID == req.ClientID {
				return false, entity.ErrDuplicateRequest
			}
		}
	}
	s.requests[req.ID] = *req
	return true, nil
}

func (s *Store) ListRestoreRequests(_ context.Context, f entity.RestoreFilter) ([]entity.RestoreRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []entity.RestoreRequest
	for _, r := range s.requests {
		if f.AgencyID != "" && r.AgencyID != f.AgencyID {
			continue
		}
		if f.ClientID != "" && r.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.Before(result[j].RequestedAt) })
	return result, nil
}

// tasks

func (s *Store) InsertTask(_ context.Context, task *entity.FollowUpTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; ok {
		return entity.ErrAlreadyExists
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (*entity.FollowUpTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) UpdateTask(_ context.Context, task *entity.FollowUpTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return entity.ErrNotFound
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *Store) ListTasks(_ context.Context, f entity.TaskFilter) ([]entity.FollowUpTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []entity.FollowUpTask
	for _, t := range s.tasks {
		if f.AgencyID != "" && t.AgencyID != f.AgencyID {
			continue
		}
		if f.OpportunityID != "" && t.OpportunityID != f.OpportunityID {
			continue
		}
		if f.ClientID != "" && t.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// chat

func (s *Store) GetOrCreateThread(_ context.Context, thread *entity.ChatThread) (*entity.ChatThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.threads {
		if t.OpportunityID == thread.OpportunityID && t.ClientID == thread.ClientID {
			return &t, nil
		}
	}
	s.threads[thread.ID] = *thread
	created := *thread
	return &created, nil
}

func (s *Store) GetThread(_ context.Context, id string) (*entity.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (s *Store) FindThread(_ context.Context, opportunityID, clientID string) (*entity.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.threads {
		if t.OpportunityID == opportunityID && t.ClientID == clientID {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *Store) AppendMessage(_ context.Context, msg *entity.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[msg.ThreadID]
	if !ok {
		return entity.ErrNotFound
	}
	now := s.now()
	if now.Before(t.LastMessageAt) {
		now = t.LastMessageAt
	}
	t.LastSeq++
	t.LastMessageAt = now
	s.threads[t.ID] = t

	msg.Seq = t.LastSeq
	msg.CreatedAt = now
	s.messages[t.ID] = append(s.messages[t.ID], *msg)
	return nil
}

func (s *Store) SetThreadEscalated(_ context.Context, threadID string, escalated bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[threadID]
	if !ok {
		return entity.ErrNotFound
	}
	t.IsEscalated = escalated
	if escalated {
		t.EscalatedAt = &at
	} else {
		t.EscalatedAt = nil
	}
	s.threads[threadID] = t
	return nil
}

func (s *Store) ListMessages(_ context.Context, threadID string, afterSeq int64, limit int) ([]entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []entity.ChatMessage
	for _, m := range s.messages[threadID] {
		if m.Seq <= afterSeq {
			continue
		}
		result = append(result, m)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) ListEscalatedThreads(_ context.Context, agencyID string) ([]entity.ChatThread, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []entity.ChatThread
	for _, t := range s.threads {
		if t.IsEscalated && (agencyID == "" || t.AgencyID == agencyID) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].LastMessageAt.Before(result[j].LastMessageAt) })
	return result, nil
}

// activity

func (s *Store) InsertActivity(_ context.Context, entry *entity.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = append(s.activity, *entry)
	return nil
}

func (s *Store) ListActivity(_ context.Context, agencyID, opportunityID string, limit int) ([]entity.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []entity.ActivityEntry
	for i := len(s.activity) - 1; i >= 0; i-- {
		e := s.activity[i]
		if e.AgencyID != agencyID {
			continue
		}
		if opportunityID != "" && e.OpportunityID != opportunityID {
			continue
		}
		result = append(result, e)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// api keys

func (s *Store) CheckApiKey(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	username, ok := s.apiKeys[key]
	if !ok {
		return "", entity.ErrNotFound
	}
	return username, nil
}

func (s *Store) GenerateApiKey(username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, u := range s.apiKeys {
		if u == username {
			return k, nil
		}
	}
	key := uuid.NewString()
	s.apiKeys[key] = username
	return key, nil
}
