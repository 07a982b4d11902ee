package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"woonruil/internal/domain/entity"
	"woonruil/internal/domain/service"
	"woonruil/internal/infrastructure/firebase"
	"woonruil/pkg/errors"
)

// memUserRepo

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) Upsert(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		cp := *user
		r.users[user.ID] = &cp
		return nil
	}
	if user.DisplayName != "" {
		existing.DisplayName = user.DisplayName
	}
	if user.Email != "" {
		existing.Email = user.Email
	}
	if user.PhotoURL != "" {
		existing.PhotoURL = user.PhotoURL
	}
	if user.Provider != "" {
		existing.Provider = user.Provider
	}
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.User, error) {
	out := map[string]*entity.User{}
	for _, id := range ids {
		if u, err := r.GetByID(ctx, id); err == nil {
			out[id] = u
		}
	}
	return out, nil
}

// memListingRepo

type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing
	order    []string
	seq      int
}

func newMemListingRepo(listings ...*entity.Listing) *memListingRepo {
	r := &memListingRepo{listings: map[string]*entity.Listing{}}
	for _, l := range listings {
		r.listings[l.ID] = l
		r.order = append(r.order, l.ID)
	}
	return r
}

func (r *memListingRepo) Create(_ context.Context, l *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == "" {
		r.seq++
		l.ID = fmt.Sprintf("listing-%d", r.seq)
	}
	r.listings[l.ID] = l
	r.order = append(r.order, l.ID)
	return nil
}

func (r *memListingRepo) GetByID(_ context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	cp := *l
	return &cp, nil
}

// List returns newest first, i.e. reverse insertion order.
func (r *memListingRepo) List(context.Context) ([]*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Listing, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		if l, ok := r.listings[r.order[i]]; ok {
			cp := *l
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memListingRepo) ListRecent(ctx context.Context, limit int) ([]*entity.Listing, error) {
	all, _ := r.List(ctx)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memListingRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Listing, error) {
	all, _ := r.List(ctx)
	var out []*entity.Listing
	for _, l := range all {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *memListingRepo) ListMissingCoordinates(ctx context.Context, limit int) ([]*entity.Listing, error) {
	all, _ := r.List(ctx)
	var out []*entity.Listing
	for _, l := range all {
		if !l.HasCoordinates() {
			out = append(out, l)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *memListingRepo) Update(_ context.Context, l *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.listings[l.ID]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	if stored.SameAddress(l) {
		l.Latitude, l.Longitude = stored.Latitude, stored.Longitude
	} else {
		l.Latitude, l.Longitude = nil, nil
	}
	cp := *l
	r.listings[l.ID] = &cp
	return nil
}

func (r *memListingRepo) UpdateCoordinates(_ context.Context, id string, lat, lng float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	l.SetCoordinates(lat, lng)
	return nil
}

func (r *memListingRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listings, id)
	return nil
}

// memChatRepo serialises every write behind one mutex, which gives the
// same all-or-nothing behaviour as the store transaction.

type memChatRepo struct {
	mu            sync.Mutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message
	inbox         map[string]map[string]*entity.InboxEntry
	watchers      map[string][]chan *entity.Message
	seq           int
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{
		conversations: map[string]*entity.Conversation{},
		messages:      map[string][]*entity.Message{},
		inbox:         map[string]map[string]*entity.InboxEntry{},
		watchers:      map[string][]chan *entity.Message{},
	}
}

func (r *memChatRepo) nextID() string {
	r.seq++
	return fmt.Sprintf("m%03d", r.seq)
}

func (r *memChatRepo) writeLocked(conv *entity.Conversation, msg *entity.Message) {
	if msg.ID == "" {
		msg.ID = r.nextID()
	}
	msg.ConversationID = conv.ID
	r.messages[conv.ID] = append(r.messages[conv.ID], msg)
	for uid, entry := range entity.InboxEntriesFor(conv, msg) {
		if r.inbox[uid] == nil {
			r.inbox[uid] = map[string]*entity.InboxEntry{}
		}
		r.inbox[uid][conv.ID] = entry
	}
	for _, ch := range r.watchers[conv.ID] {
		ch <- msg
	}
}

func (r *memChatRepo) CreateConversation(_ context.Context, conv *entity.Conversation, first *entity.Message) (*entity.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.conversations[conv.ID]; ok {
		cp := *existing
		return &cp, false, nil
	}
	stored := *conv
	stored.LastMessage = first.Text
	stored.LastMessageAt = first.Timestamp
	r.conversations[conv.ID] = &stored
	r.writeLocked(&stored, first)
	cp := stored
	return &cp, true, nil
}

func (r *memChatRepo) GetConversation(_ context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	cp := *c
	return &cp, nil
}

func (r *memChatRepo) AppendMessage(_ context.Context, msg *entity.Message) (*entity.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[msg.ConversationID]
	if !ok {
		return nil, errors.NotFound("Conversation", nil)
	}
	c.LastMessage = msg.Text
	c.LastMessageAt = msg.Timestamp
	r.writeLocked(c, msg)
	cp := *c
	return &cp, nil
}

func (r *memChatRepo) ListMessages(_ context.Context, id string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Message, len(r.messages[id]))
	copy(out, r.messages[id])
	return out, nil
}

// WatchMessages replays existing messages first, like a store listener's
// initial snapshot, then forwards appends.
func (r *memChatRepo) WatchMessages(ctx context.Context, id string, fn func(*entity.Message)) error {
	ch := make(chan *entity.Message, 128)

	r.mu.Lock()
	existing := append([]*entity.Message(nil), r.messages[id]...)
	r.watchers[id] = append(r.watchers[id], ch)
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.watchers[id]
		for i, w := range list {
			if w == ch {
				r.watchers[id] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}()

	for _, m := range existing {
		fn(m)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-ch:
			fn(m)
		}
	}
}

func (r *memChatRepo) ListInbox(_ context.Context, userID string) ([]*entity.InboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.InboxEntry, 0, len(r.inbox[userID]))
	for _, e := range r.inbox[userID] {
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConversationID < out[j].ConversationID })
	return out, nil
}

func (r *memChatRepo) DeleteConversation(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return errors.NotFound("Conversation", nil)
	}
	for _, p := range c.Participants {
		delete(r.inbox[p], id)
	}
	delete(r.messages, id)
	delete(r.conversations, id)
	return nil
}

func (r *memChatRepo) watcherCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers[id])
}

// memBlockRepo

type memBlockRepo struct {
	mu     sync.Mutex
	blocks map[string]*entity.Block
}

func newMemBlockRepo() *memBlockRepo {
	return &memBlockRepo{blocks: map[string]*entity.Block{}}
}

func (r *memBlockRepo) Block(_ context.Context, b *entity.Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[b.BlockerID+"/"+b.BlockedID] = b
	return nil
}

func (r *memBlockRepo) Unblock(_ context.Context, blocker, blocked string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.blocks, blocker+"/"+blocked)
	return nil
}

func (r *memBlockRepo) IsBlocked(_ context.Context, blocker, blocked string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.blocks[blocker+"/"+blocked]
	return ok, nil
}

func (r *memBlockRepo) ListBlocked(_ context.Context, blocker string) ([]*entity.Block, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Block
	for _, b := range r.blocks {
		if b.BlockerID == blocker {
			out = append(out, b)
		}
	}
	return out, nil
}

// allowAll never throttles.

type allowAll struct{}

func (allowAll) Allow(string, string) (bool, time.Duration) { return true, 0 }

type denyAll struct{}

func (denyAll) Allow(string, string) (bool, time.Duration) { return false, time.Minute }

// recordingNotifier

type recordingNotifier struct {
	mu      sync.Mutex
	entries map[string][]*entity.InboxEntry
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{entries: map[string][]*entity.InboxEntry{}}
}

func (n *recordingNotifier) NotifyInbox(userID string, entry *entity.InboxEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries[userID] = append(n.entries[userID], entry)
}

// memStorage

type memStorage struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	failOn  string
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string]string{}}
}

func (s *memStorage) Upload(_ context.Context, object string, file io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	if s.failOn != "" && string(data) == s.failOn {
		return "", fmt.Errorf("upload failed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[object] = string(data)
	return "https://files.test/" + object, nil
}

func (s *memStorage) DeleteFile(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, url)
	return nil
}

// stubGeocoder resolves addresses from a fixed table.

type stubGeocoder struct {
	mu     sync.Mutex
	known  map[string]service.Coordinates
	failOn map[string]error
	calls  []string
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (service.Coordinates, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, address)
	if err, ok := g.failOn[address]; ok {
		return service.Coordinates{}, err
	}
	if c, ok := g.known[address]; ok {
		return c, nil
	}
	return service.Coordinates{}, service.ErrAddressNotFound
}

// fakeAuth

type fakeAuth struct {
	users     map[string]*firebase.UserRecord
	passwords map[string]string
	updated   map[string][2]string
	seq       int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		users:     map[string]*firebase.UserRecord{},
		passwords: map[string]string{},
		updated:   map[string][2]string{},
	}
}

func (f *fakeAuth) CreateUser(_ context.Context, email, password, displayName string) (string, error) {
	for _, u := range f.users {
		if u.Email == email {
			return "", firebase.ErrEmailExists
		}
	}
	f.seq++
	uid := fmt.Sprintf("uid%d", f.seq)
	f.users[uid] = &firebase.UserRecord{UID: uid, Email: email, DisplayName: displayName, Provider: "password"}
	f.passwords[email] = password
	return uid, nil
}

func (f *fakeAuth) VerifyToken(_ context.Context, token string) (string, error) {
	if _, ok := f.users[token]; ok {
		return token, nil
	}
	return "", fmt.Errorf("invalid token")
}

func (f *fakeAuth) GetUser(_ context.Context, uid string) (*firebase.UserRecord, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, fmt.Errorf("user not found")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAuth) UpdateProfile(_ context.Context, uid, displayName, photoURL string) error {
	u, ok := f.users[uid]
	if !ok {
		return fmt.Errorf("user not found")
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	if photoURL != "" {
		u.PhotoURL = photoURL
	}
	f.updated[uid] = [2]string{displayName, photoURL}
	return nil
}

func (f *fakeAuth) SignInWithEmailPassword(_ context.Context, email, password string) (*firebase.SignInResult, error) {
	if pw, ok := f.passwords[email]; !ok || pw != password {
		return nil, firebase.ErrInvalidCredentials
	}
	for uid, u := range f.users {
		if u.Email == email {
			return &firebase.SignInResult{IDToken: "id-" + uid, RefreshToken: "rt-" + uid, UID: uid}, nil
		}
	}
	return nil, firebase.ErrInvalidCredentials
}
