package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/jeepedia/jeepedia/internal/models"
)

// Errors returned by the in-memory backend.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("already exists")
	ErrForbidden = errors.New("not permitted")
)

// User is an account of the stub backend.
type User struct {
	models.Profile
	PasswordHash  []byte
	EmailVerified bool
	Subscribed    bool
}

// Order is a payment order opened for a pre-booked subscription.
type Order struct {
	ID             string
	SubscriptionID string
	UserID         int64
	Amount         int64
	Currency       string
	Paid           bool
}

type postRecord struct {
	post     models.Post
	comments []int64
}

type subscription struct {
	userID int64
	paid   bool
}

type feedbackRecord struct {
	userID   int64
	feedback models.Feedback
}

type otpKey struct {
	email   string
	purpose string
}

// MemoryBackend keeps every record of the stub API server in memory. It is
// safe for concurrent use.
type MemoryBackend struct {
	mu  sync.RWMutex
	now func() time.Time

	nextID        int64
	users         map[int64]*User
	posts         []*postRecord
	comments      map[int64]*models.Comment
	likes         map[int64]map[int64]bool
	feedbacks     []feedbackRecord
	contacts      []models.ContactMessage
	otps          map[otpKey]string
	emailTokens   map[string]string
	subscriptions map[string]*subscription
	orders        map[string]*Order
	media         map[string][]byte
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		now:           time.Now,
		users:         map[int64]*User{},
		comments:      map[int64]*models.Comment{},
		likes:         map[int64]map[int64]bool{},
		otps:          map[otpKey]string{},
		emailTokens:   map[string]string{},
		subscriptions: map[string]*subscription{},
		orders:        map[string]*Order{},
		media:         map[string][]byte{},
	}
}

func (b *MemoryBackend) id() int64 {
	b.nextID++
	return b.nextID
}

// CreateUser stores a new account. Email and username must be unique.
func (b *MemoryBackend) CreateUser(_ context.Context, p models.Profile, hash []byte) (models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, p.Email) || strings.EqualFold(u.Username, p.Username) {
			return models.Profile{}, ErrConflict
		}
	}
	p.ID = b.id()
	b.users[p.ID] = &User{Profile: p, PasswordHash: hash}
	return p, nil
}

// UserByEmail looks an account up by login address.
func (b *MemoryBackend) UserByEmail(_ context.Context, email string) (User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, email) {
			return *u, nil
		}
	}
	return User{}, ErrNotFound
}

// UserByID looks an account up by ID.
func (b *MemoryBackend) UserByID(_ context.Context, id int64) (User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// UpdateUser saves the editable profile fields.
func (b *MemoryBackend) UpdateUser(_ context.Context, id int64, upd models.ProfileUpdate) (models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	for _, other := range b.users {
		if other.ID != id && strings.EqualFold(other.Username, upd.Username) {
			return models.Profile{}, ErrConflict
		}
	}
	u.FirstName = upd.FirstName
	u.LastName = upd.LastName
	u.Username = upd.Username
	u.PhoneNumber = upd.PhoneNumber
	return u.Profile, nil
}

// SetProfilePicture stores an uploaded picture under a media path.
func (b *MemoryBackend) SetProfilePicture(_ context.Context, id int64, filename string, data []byte) (models.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	path := mediaPath("profile_pictures", filename)
	b.media[path] = data
	u.ProfilePicture = path
	return u.Profile, nil
}

// SetPassword replaces the password hash of an account.
func (b *MemoryBackend) SetPassword(_ context.Context, id int64, hash []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

// SetEmail moves an account to a new login address, which must be unused.
// The new address starts unverified.
func (b *MemoryBackend) SetEmail(_ context.Context, id int64, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return ErrNotFound
	}
	for _, other := range b.users {
		if other.ID != id && strings.EqualFold(other.Email, email) {
			return ErrConflict
		}
	}
	u.Email = email
	u.EmailVerified = false
	return nil
}

// MarkEmailVerified flags the account owning email as verified.
func (b *MemoryBackend) MarkEmailVerified(_ context.Context, email string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, u := range b.users {
		if strings.EqualFold(u.Email, email) {
			u.EmailVerified = true
			return nil
		}
	}
	return ErrNotFound
}

// SaveOTP remembers the latest code sent to email for purpose.
func (b *MemoryBackend) SaveOTP(_ context.Context, email, purpose, code string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.otps[otpKey{strings.ToLower(email), purpose}] = code
}

// CheckOTP reports whether code is the latest one sent to email for
// purpose. A matching code is removed when consume is set.
func (b *MemoryBackend) CheckOTP(_ context.Context, email, purpose, code string, consume bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := otpKey{strings.ToLower(email), purpose}
	want, ok := b.otps[key]
	if !ok || want != code {
		return false
	}
	if consume {
		delete(b.otps, key)
	}
	return true
}

// SaveEmailToken remembers a verification link token for email.
func (b *MemoryBackend) SaveEmailToken(_ context.Context, email, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emailTokens[token] = strings.ToLower(email)
}

// ConsumeEmailToken returns the email a link token was issued for and
// forgets the token.
func (b *MemoryBackend) ConsumeEmailToken(_ context.Context, token string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.emailTokens[token]
	if ok {
		delete(b.emailTokens, token)
	}
	return email, ok
}

func (b *MemoryBackend) author(id int64) models.Author {
	u, ok := b.users[id]
	if !ok {
		return models.Author{ID: id}
	}
	return models.Author{
		ID:             u.ID,
		Username:       u.Username,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		ProfilePicture: u.ProfilePicture,
	}
}

// CreatePost stores a post and its optional image.
func (b *MemoryBackend) CreatePost(_ context.Context, userID int64, title, content, imageName string, image []byte) (models.Post, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[userID]; !ok {
		return models.Post{}, ErrNotFound
	}
	p := models.Post{
		ID:        b.id(),
		Slug:      slugify(title) + "-" + uuid.NewString()[:8],
		Title:     title,
		Content:   content,
		User:      models.Author{ID: userID},
		CreatedAt: b.now().UTC(),
	}
	if len(image) > 0 {
		p.Image = mediaPath("post_images", imageName)
		b.media[p.Image] = image
	}
	b.posts = append(b.posts, &postRecord{post: p})
	return b.viewPost(p, userID), nil
}

func (b *MemoryBackend) viewPost(p models.Post, viewer int64) models.Post {
	p.User = b.author(p.User.ID)
	p.LikeCount = len(b.likes[p.ID])
	p.UserLiked = viewer > 0 && b.likes[p.ID][viewer]
	return p
}

// Posts lists every post, newest first. viewer is 0 for anonymous callers.
func (b *MemoryBackend) Posts(_ context.Context, viewer int64) []models.Post {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Post, 0, len(b.posts))
	for i := len(b.posts) - 1; i >= 0; i-- {
		out = append(out, b.viewPost(b.posts[i].post, viewer))
	}
	return out
}

// PostsByUser lists the posts of userID, newest first.
func (b *MemoryBackend) PostsByUser(_ context.Context, userID int64) []models.Post {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []models.Post{}
	for i := len(b.posts) - 1; i >= 0; i-- {
		if b.posts[i].post.User.ID == userID {
			out = append(out, b.viewPost(b.posts[i].post, userID))
		}
	}
	return out
}

// PostBySlug returns a post with its like state and comment tree, comments
// newest first and replies oldest first.
func (b *MemoryBackend) PostBySlug(_ context.Context, slug string, viewer int64) (models.PostDetail, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, rec := range b.posts {
		if rec.post.Slug != slug {
			continue
		}
		p := b.viewPost(rec.post, viewer)
		detail := models.PostDetail{
			Post:      p,
			LikeCount: p.LikeCount,
			UserLiked: p.UserLiked,
			Comments:  make([]models.Comment, 0, len(rec.comments)),
		}
		for i := len(rec.comments) - 1; i >= 0; i-- {
			detail.Comments = append(detail.Comments, b.viewComment(b.comments[rec.comments[i]]))
		}
		return detail, nil
	}
	return models.PostDetail{}, ErrNotFound
}

func (b *MemoryBackend) viewComment(c *models.Comment) models.Comment {
	out := *c
	out.User = b.author(c.User.ID)
	out.Replies = make([]models.Reply, len(c.Replies))
	for i, r := range c.Replies {
		r.User = b.author(r.User.ID)
		out.Replies[i] = r
	}
	return out
}

func (b *MemoryBackend) findPost(id int64) (*postRecord, int) {
	for i, rec := range b.posts {
		if rec.post.ID == id {
			return rec, i
		}
	}
	return nil, -1
}

// ToggleLike flips the like of userID on a post.
func (b *MemoryBackend) ToggleLike(_ context.Context, postID, userID int64) (models.LikeState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if rec, _ := b.findPost(postID); rec == nil {
		return models.LikeState{}, ErrNotFound
	}
	likers := b.likes[postID]
	if likers == nil {
		likers = map[int64]bool{}
		b.likes[postID] = likers
	}
	liked := !likers[userID]
	if liked {
		likers[userID] = true
	} else {
		delete(likers, userID)
	}
	return models.LikeState{LikeCount: len(likers), UserLiked: liked}, nil
}

// AddComment appends a top-level comment to a post.
func (b *MemoryBackend) AddComment(_ context.Context, postID, userID int64, content string) (models.Comment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, _ := b.findPost(postID)
	if rec == nil {
		return models.Comment{}, ErrNotFound
	}
	c := &models.Comment{
		ID:        b.id(),
		User:      models.Author{ID: userID},
		Content:   content,
		CreatedAt: b.now().UTC(),
		Replies:   []models.Reply{},
	}
	b.comments[c.ID] = c
	rec.comments = append(rec.comments, c.ID)
	return b.viewComment(c), nil
}

// AddReply appends a reply to a comment.
func (b *MemoryBackend) AddReply(_ context.Context, commentID, userID int64, content string) (models.Reply, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.comments[commentID]
	if !ok {
		return models.Reply{}, ErrNotFound
	}
	r := models.Reply{
		ID:        b.id(),
		User:      models.Author{ID: userID},
		Content:   content,
		CreatedAt: b.now().UTC(),
	}
	c.Replies = append(c.Replies, r)
	r.User = b.author(userID)
	return r, nil
}

// DeletePost removes a post owned by userID together with its comments.
func (b *MemoryBackend) DeletePost(_ context.Context, postID, userID int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, i := b.findPost(postID)
	if rec == nil {
		return ErrNotFound
	}
	if rec.post.User.ID != userID {
		return ErrForbidden
	}
	for _, cid := range rec.comments {
		delete(b.comments, cid)
	}
	delete(b.likes, postID)
	if rec.post.Image != "" {
		delete(b.media, rec.post.Image)
	}
	b.posts = append(b.posts[:i], b.posts[i+1:]...)
	return nil
}

// EditPost replaces the title and content of a post owned by userID.
func (b *MemoryBackend) EditPost(_ context.Context, postID, userID int64, edit models.PostEdit) (models.Post, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, _ := b.findPost(postID)
	if rec == nil {
		return models.Post{}, ErrNotFound
	}
	if rec.post.User.ID != userID {
		return models.Post{}, ErrForbidden
	}
	rec.post.Title = edit.Title
	rec.post.Content = edit.Content
	return b.viewPost(rec.post, userID), nil
}

// AddFeedback stores a rating of userID.
func (b *MemoryBackend) AddFeedback(_ context.Context, userID int64, text string, rating int) models.Feedback {
	b.mu.Lock()
	defer b.mu.Unlock()
	f := models.Feedback{ID: b.id(), Feedback: text, Rating: rating, CreatedAt: b.now().UTC()}
	b.feedbacks = append(b.feedbacks, feedbackRecord{userID: userID, feedback: f})
	return f
}

// Feedbacks lists the feedback of userID, newest first.
func (b *MemoryBackend) Feedbacks(_ context.Context, userID int64) []models.Feedback {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []models.Feedback{}
	for i := len(b.feedbacks) - 1; i >= 0; i-- {
		if b.feedbacks[i].userID == userID {
			out = append(out, b.feedbacks[i].feedback)
		}
	}
	return out
}

// AddContact stores a contact message.
func (b *MemoryBackend) AddContact(_ context.Context, m models.ContactMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contacts = append(b.contacts, m)
}

// Contacts returns the stored contact messages in arrival order.
func (b *MemoryBackend) Contacts(_ context.Context) []models.ContactMessage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.ContactMessage(nil), b.contacts...)
}

// PreBook reserves an unpaid subscription for userID.
func (b *MemoryBackend) PreBook(_ context.Context, userID int64) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.users[userID]; !ok {
		return "", ErrNotFound
	}
	id := "sub_" + uuid.NewString()
	b.subscriptions[id] = &subscription{userID: userID}
	return id, nil
}

// CreateOrder opens an order on a subscription pre-booked by userID.
// amount is in the smallest currency unit.
func (b *MemoryBackend) CreateOrder(_ context.Context, userID int64, subscriptionID string, amount int64, currency string) (Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subscriptions[subscriptionID]
	if !ok {
		return Order{}, ErrNotFound
	}
	if sub.userID != userID {
		return Order{}, ErrForbidden
	}
	if sub.paid {
		return Order{}, ErrConflict
	}
	o := &Order{
		ID:             "order_" + xid.New().String(),
		SubscriptionID: subscriptionID,
		UserID:         userID,
		Amount:         amount,
		Currency:       currency,
	}
	b.orders[o.ID] = o
	return *o, nil
}

// OrderByID returns an order.
func (b *MemoryBackend) OrderByID(_ context.Context, id string) (Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return *o, nil
}

// CompleteOrder marks an order of userID paid and activates its
// subscription.
func (b *MemoryBackend) CompleteOrder(_ context.Context, userID int64, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return ErrNotFound
	}
	if o.UserID != userID {
		return ErrForbidden
	}
	o.Paid = true
	b.subscriptions[o.SubscriptionID].paid = true
	if u, ok := b.users[userID]; ok {
		u.Subscribed = true
	}
	return nil
}

// Subscribed reports whether userID holds a paid subscription.
func (b *MemoryBackend) Subscribed(_ context.Context, userID int64) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[userID]
	return ok && u.Subscribed
}

// Media returns an uploaded file by its media path.
func (b *MemoryBackend) Media(_ context.Context, path string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.media[strings.TrimPrefix(path, "/")]
	return data, ok
}

var (
	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
	nonFile = regexp.MustCompile(`[^a-z0-9._-]+`)
)

func slugify(title string) string {
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return "post"
	}
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

func mediaPath(dir, filename string) string {
	name := strings.Trim(nonFile.ReplaceAllString(strings.ToLower(filename), "_"), "._")
	if name == "" {
		name = "upload"
	}
	return dir + "/" + xid.New().String() + "_" + name
}
