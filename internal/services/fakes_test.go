package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/splitfair/splitfair/internal/apperr"
	"github.com/splitfair/splitfair/internal/models"
)

func timeNow() time.Time { return time.Now().UTC() }

func groupNamed(name, creator string) models.Group {
	return models.Group{Name: name, CreatedBy: creator}
}

// fakeStore is an in-memory stand-in for the expense and split repositories.
// It mirrors the store's contract points the services depend on: atomic
// create, conflict on replacing settled splits, and conditional settlement.
type fakeStore struct {
	mu       sync.Mutex
	seq      int
	expenses map[string]models.Expense
	splits   map[string]models.Split
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		expenses: map[string]models.Expense{},
		splits:   map[string]models.Split{},
	}
}

func (f *fakeStore) nextID() string {
	f.seq++
	return fmt.Sprintf("id-%d", f.seq)
}

func (f *fakeStore) CreateWithSplits(_ context.Context, e models.Expense, splits []models.Split) (models.ExpenseWithSplits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.nextID()
	e.CreatedAt = time.Now().UTC()
	f.expenses[e.ID] = e
	out := models.ExpenseWithSplits{Expense: e}
	for i, sp := range splits {
		sp.ID = f.nextID()
		sp.ExpenseID = e.ID
		sp.Position = i
		f.splits[sp.ID] = sp
		out.Splits = append(out.Splits, sp)
	}
	return out, nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok {
		return models.Expense{}, apperr.NotFound("expense not found")
	}
	return e, nil
}

func (f *fakeStore) splitsOf(expenseID string) []models.Split {
	var out []models.Split
	for i := 1; i <= f.seq; i++ {
		if sp, ok := f.splits[fmt.Sprintf("id-%d", i)]; ok && sp.ExpenseID == expenseID {
			out = append(out, sp)
		}
	}
	return out
}

func (f *fakeStore) ListByGroup(_ context.Context, groupID string) ([]models.ExpenseWithSplits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ExpenseWithSplits
	for i := 1; i <= f.seq; i++ {
		e, ok := f.expenses[fmt.Sprintf("id-%d", i)]
		if ok && e.GroupID == groupID {
			out = append(out, models.ExpenseWithSplits{Expense: e, Splits: f.splitsOf(e.ID)})
		}
	}
	return out, nil
}

func (f *fakeStore) ListByCreator(_ context.Context, userID string) ([]models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Expense
	for i := 1; i <= f.seq; i++ {
		if e, ok := f.expenses[fmt.Sprintf("id-%d", i)]; ok && e.CreatedBy == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForUser(_ context.Context, userID string) ([]models.ExpenseWithSplits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ExpenseWithSplits
	for i := 1; i <= f.seq; i++ {
		e, ok := f.expenses[fmt.Sprintf("id-%d", i)]
		if !ok {
			continue
		}
		splits := f.splitsOf(e.ID)
		touched := e.PaidBy == userID
		for _, sp := range splits {
			if sp.UserID == userID {
				touched = true
			}
		}
		if touched {
			out = append(out, models.ExpenseWithSplits{Expense: e, Splits: splits})
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateDescription(_ context.Context, id, description string) (models.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.expenses[id]
	if !ok {
		return models.Expense{}, apperr.NotFound("expense not found")
	}
	e.Description = description
	f.expenses[id] = e
	return e, nil
}

func (f *fakeStore) ReplaceSplits(_ context.Context, e models.Expense, splits []models.Split) (models.ExpenseWithSplits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[e.ID]; !ok {
		return models.ExpenseWithSplits{}, apperr.NotFound("expense not found")
	}
	for _, sp := range f.splitsOf(e.ID) {
		if sp.IsSettled {
			return models.ExpenseWithSplits{}, apperr.Conflict("expense has settled splits")
		}
	}
	for _, sp := range f.splitsOf(e.ID) {
		delete(f.splits, sp.ID)
	}
	f.expenses[e.ID] = e
	out := models.ExpenseWithSplits{Expense: e}
	for i, sp := range splits {
		sp.ID = f.nextID()
		sp.ExpenseID = e.ID
		sp.Position = i
		f.splits[sp.ID] = sp
		out.Splits = append(out.Splits, sp)
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.expenses[id]; !ok {
		return apperr.NotFound("expense not found")
	}
	for _, sp := range f.splitsOf(id) {
		delete(f.splits, sp.ID)
	}
	delete(f.expenses, id)
	return nil
}

func (f *fakeStore) GetSplitByID(_ context.Context, id string) (models.Split, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.splits[id]
	if !ok {
		return models.Split{}, apperr.NotFound("split not found")
	}
	return sp, nil
}

func (f *fakeStore) ListByExpense(_ context.Context, expenseID string) ([]models.Split, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.splitsOf(expenseID), nil
}

func (f *fakeStore) Settle(_ context.Context, id string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sp, ok := f.splits[id]
	if !ok {
		return false, apperr.NotFound("split not found")
	}
	if sp.IsSettled {
		return false, nil
	}
	sp.IsSettled = true
	sp.SettledAt = &at
	f.splits[id] = sp
	return true, nil
}

func (f *fakeStore) SettleOutstanding(_ context.Context, expenseID, userID string, at time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, sp := range f.splitsOf(expenseID) {
		if sp.IsSettled || (userID != "" && sp.UserID != userID) {
			continue
		}
		sp.IsSettled = true
		sp.SettledAt = &at
		f.splits[sp.ID] = sp
		n++
	}
	return n, nil
}

func (f *fakeStore) AnySettled(_ context.Context, expenseID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sp := range f.splitsOf(expenseID) {
		if sp.IsSettled {
			return true, nil
		}
	}
	return false, nil
}

// splitsView adapts fakeStore to the split repository interface, whose
// GetByID collides with the expense one.
type splitsView struct{ *fakeStore }

func (v splitsView) GetByID(ctx context.Context, id string) (models.Split, error) {
	return v.fakeStore.GetSplitByID(ctx, id)
}

type fakeGroups struct {
	mu      sync.Mutex
	seq     int
	groups  map[string]models.Group
	members map[string]models.GroupMember // groupID + "/" + userID
}

func newFakeGroups() *fakeGroups {
	return &fakeGroups{groups: map[string]models.Group{}, members: map[string]models.GroupMember{}}
}

func (f *fakeGroups) addMember(groupID, userID string, role models.MemberRole) {
	f.seq++
	f.members[groupID+"/"+userID] = models.GroupMember{
		ID: fmt.Sprintf("m-%d", f.seq), GroupID: groupID, UserID: userID, Role: role,
	}
}

func (f *fakeGroups) Create(_ context.Context, g models.Group) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	g.ID = fmt.Sprintf("g-%d", f.seq)
	f.groups[g.ID] = g
	f.addMember(g.ID, g.CreatedBy, models.RoleAdmin)
	return g, nil
}

func (f *fakeGroups) GetByID(_ context.Context, id string) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return models.Group{}, apperr.NotFound("group not found")
	}
	return g, nil
}

func (f *fakeGroups) ListForUser(_ context.Context, userID string) ([]models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Group
	for _, m := range f.members {
		if m.UserID == userID {
			out = append(out, f.groups[m.GroupID])
		}
	}
	return out, nil
}

func (f *fakeGroups) Update(_ context.Context, g models.Group) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.groups[g.ID]; !ok {
		return models.Group{}, apperr.NotFound("group not found")
	}
	f.groups[g.ID] = g
	return g, nil
}

func (f *fakeGroups) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.groups, id)
	return nil
}

func (f *fakeGroups) AddMember(_ context.Context, groupID, userID string, role models.MemberRole) (models.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[groupID+"/"+userID]; ok {
		return models.GroupMember{}, apperr.Conflict("already a member")
	}
	f.addMember(groupID, userID, role)
	return f.members[groupID+"/"+userID], nil
}

func (f *fakeGroups) RemoveMember(_ context.Context, groupID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.members[groupID+"/"+userID]; !ok {
		return apperr.NotFound("member not found")
	}
	delete(f.members, groupID+"/"+userID)
	return nil
}

func (f *fakeGroups) GetMember(_ context.Context, groupID, userID string) (models.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[groupID+"/"+userID]
	if !ok {
		return models.GroupMember{}, apperr.NotFound("member not found")
	}
	return m, nil
}

func (f *fakeGroups) ListMembers(_ context.Context, groupID string) ([]models.GroupMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.GroupMember
	for _, m := range f.members {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeUsers struct {
	mu    sync.Mutex
	seq   int
	users map[string]models.User // by ID
}

func newFakeUsers() *fakeUsers { return &fakeUsers{users: map[string]models.User{}} }

func (f *fakeUsers) Create(_ context.Context, name, email, passwordHash string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return models.User{}, apperr.Conflict("email already registered")
		}
	}
	f.seq++
	u := models.User{ID: fmt.Sprintf("u-%d", f.seq), Name: name, Email: email, PasswordHash: passwordHash}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.User{}, apperr.NotFound("user not found")
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperr.NotFound("user not found")
}

type fakeAudits struct {
	mu   sync.Mutex
	logs []models.AuditLog
}

func (f *fakeAudits) Create(_ context.Context, l models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, l)
	return nil
}
