// Package servicetest holds in-memory repositories and collaborators for
// exercising the campaign service without Postgres or a mail server.
package servicetest

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/repository"
)

type recipientRow struct {
	model.CampaignRecipient
	claimToken string
}

// DB is the shared state behind every fake repository.
type DB struct {
	mu         sync.Mutex
	nextID     int64
	campaigns  map[int64]*model.Campaign
	deleted    map[int64]bool
	templates  map[int64]*model.EmailTemplate
	customers  map[int64]*model.Customer
	leads      map[int64]*model.Lead
	users      map[int64]*model.User
	recipients map[int64]*recipientRow

	// Injected failures.
	CreateBatchErr error
	ListPendingErr error
	ClaimErr       error
	MarkSentErr    error
}

func NewDB() *DB {
	return &DB{
		campaigns:  map[int64]*model.Campaign{},
		deleted:    map[int64]bool{},
		templates:  map[int64]*model.EmailTemplate{},
		customers:  map[int64]*model.Customer{},
		leads:      map[int64]*model.Lead{},
		users:      map[int64]*model.User{},
		recipients: map[int64]*recipientRow{},
	}
}

func (d *DB) id() int64 {
	d.nextID++
	return d.nextID
}

func (d *DB) AddTemplate(t model.EmailTemplate) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.ID == 0 {
		t.ID = d.id()
	}
	d.templates[t.ID] = &t
	return t.ID
}

func (d *DB) AddCustomer(c model.Customer) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c.ID == 0 {
		c.ID = d.id()
	}
	d.customers[c.ID] = &c
	return c.ID
}

func (d *DB) AddLead(l model.Lead) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l.ID == 0 {
		l.ID = d.id()
	}
	d.leads[l.ID] = &l
	return l.ID
}

func (d *DB) AddUser(u model.User) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if u.ID == 0 {
		u.ID = d.id()
	}
	d.users[u.ID] = &u
	return u.ID
}

// Campaign returns a copy of the stored campaign, deleted or not.
func (d *DB) Campaign(id int64) (model.Campaign, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.campaigns[id]
	if !ok {
		return model.Campaign{}, false
	}
	return *c, true
}

// Recipients returns copies of a campaign's records ordered by id.
func (d *DB) Recipients(campaignID int64) []model.CampaignRecipient {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.CampaignRecipient
	for _, r := range d.recipients {
		if r.CampaignID == campaignID {
			out = append(out, r.CampaignRecipient)
		}
	}
	slices.SortFunc(out, func(a, b model.CampaignRecipient) int { return int(a.ID - b.ID) })
	return out
}

func (d *DB) CampaignRepo() *CampaignRepo   { return &CampaignRepo{db: d} }
func (d *DB) RecipientRepo() *RecipientRepo { return &RecipientRepo{db: d} }
func (d *DB) TemplateRepo() *TemplateRepo   { return &TemplateRepo{db: d} }
func (d *DB) CustomerRepo() *CustomerRepo   { return &CustomerRepo{db: d} }
func (d *DB) LeadRepo() *LeadRepo           { return &LeadRepo{db: d} }
func (d *DB) UserRepo() *UserRepo           { return &UserRepo{db: d} }
func (d *DB) Tx() *Tx                       { return &Tx{db: d} }

// Tx restores the campaign and recipient state when fn fails.
type Tx struct{ db *DB }

func (t *Tx) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	t.db.mu.Lock()
	campaigns := maps.Clone(t.db.campaigns)
	recipients := maps.Clone(t.db.recipients)
	t.db.mu.Unlock()

	if err := fn(nil); err != nil {
		t.db.mu.Lock()
		t.db.campaigns = campaigns
		t.db.recipients = recipients
		t.db.mu.Unlock()
		return err
	}
	return nil
}

type CampaignRepo struct{ db *DB }

func (r *CampaignRepo) Create(_ context.Context, _ *sql.Tx, c *model.Campaign) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.id()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	c.CreatedAt = time.Now()
	cp := *c
	r.db.campaigns[c.ID] = &cp
	return nil
}

func (r *CampaignRepo) GetByID(_ context.Context, id int64) (*model.Campaign, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.campaigns[id]
	if !ok || r.db.deleted[id] {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *CampaignRepo) List(_ context.Context, f model.CampaignFilter, offset, limit int) ([]*model.Campaign, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var matched []*model.Campaign
	for id, c := range r.db.campaigns {
		if r.db.deleted[id] {
			continue
		}
		if f.Status != "" && string(c.Status) != f.Status {
			continue
		}
		if f.IsScheduled != nil && c.IsScheduled != *f.IsScheduled {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(f.Search)) {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	slices.SortFunc(matched, func(a, b *model.Campaign) int { return int(b.ID - a.ID) })

	total := len(matched)
	if offset > total {
		return []*model.Campaign{}, total, nil
	}
	end := min(offset+limit, total)
	return matched[offset:end], total, nil
}

func (r *CampaignRepo) Update(_ context.Context, c *model.Campaign) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cur, ok := r.db.campaigns[c.ID]
	if !ok || r.db.deleted[c.ID] || cur.Status != model.CampaignDraft {
		return false, nil
	}
	cp := *c
	cp.Status = cur.Status
	r.db.campaigns[c.ID] = &cp
	return true, nil
}

func (r *CampaignRepo) SoftDelete(_ context.Context, id int64) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.campaigns[id]; !ok || r.db.deleted[id] {
		return false, nil
	}
	r.db.deleted[id] = true
	return true, nil
}

func (r *CampaignRepo) TransitionStatus(_ context.Context, id int64, from, to model.CampaignStatus, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.campaigns[id]
	if !ok || r.db.deleted[id] || c.Status != from {
		return false, nil
	}
	switch to {
	case model.CampaignRunning:
		c.StartedAt = &at
	case model.CampaignCompleted:
		c.CompletedAt = &at
	default:
		return false, errors.New("unsupported transition")
	}
	c.Status = to
	return true, nil
}

type RecipientRepo struct{ db *DB }

func (r *RecipientRepo) CreateBatch(_ context.Context, _ *sql.Tx, campaignID int64, customerIDs, leadIDs []int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.CreateBatchErr != nil {
		return r.db.CreateBatchErr
	}
	add := func(kind model.RecipientKind, ids []int64) {
		seen := map[int64]bool{}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			rid := r.db.id()
			r.db.recipients[rid] = &recipientRow{CampaignRecipient: model.CampaignRecipient{
				ID: rid, CampaignID: campaignID, RecipientType: kind, RecipientID: id,
				Status: model.RecipientPending, CreatedAt: time.Now(), UpdatedAt: time.Now(),
			}}
		}
	}
	add(model.KindCustomer, customerIDs)
	add(model.KindLead, leadIDs)
	return nil
}

func (r *RecipientRepo) list(campaignID int64, keep func(*recipientRow) bool) []*model.CampaignRecipient {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []*model.CampaignRecipient{}
	for _, row := range r.db.recipients {
		if row.CampaignID == campaignID && keep(row) {
			cp := row.CampaignRecipient
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *model.CampaignRecipient) int { return int(a.ID - b.ID) })
	return out
}

func (r *RecipientRepo) ListPending(_ context.Context, campaignID int64) ([]*model.CampaignRecipient, error) {
	if r.db.ListPendingErr != nil {
		return nil, r.db.ListPendingErr
	}
	return r.list(campaignID, func(row *recipientRow) bool {
		return row.Status == model.RecipientPending && row.claimToken == ""
	}), nil
}

func (r *RecipientRepo) ListByCampaign(_ context.Context, campaignID int64) ([]*model.CampaignRecipient, error) {
	return r.list(campaignID, func(*recipientRow) bool { return true }), nil
}

func (r *RecipientRepo) Claim(_ context.Context, id int64, runID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.ClaimErr != nil {
		return false, r.db.ClaimErr
	}
	row, ok := r.db.recipients[id]
	if !ok || row.Status != model.RecipientPending || row.claimToken != "" {
		return false, nil
	}
	row.claimToken = runID
	return true, nil
}

func (r *RecipientRepo) move(id int64, from, to model.RecipientStatus, apply func(*recipientRow)) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	row, ok := r.db.recipients[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = time.Now()
	apply(row)
	return true, nil
}

func (r *RecipientRepo) MarkSent(_ context.Context, id int64, at time.Time) (bool, error) {
	r.db.mu.Lock()
	err := r.db.MarkSentErr
	r.db.mu.Unlock()
	if err != nil {
		return false, err
	}
	return r.move(id, model.RecipientPending, model.RecipientSent, func(row *recipientRow) { row.SentAt = &at })
}

func (r *RecipientRepo) MarkFailed(_ context.Context, id int64, reason string) (bool, error) {
	return r.move(id, model.RecipientPending, model.RecipientFailed, func(row *recipientRow) { row.LastError = reason })
}

func (r *RecipientRepo) MarkOpened(_ context.Context, id int64, at time.Time) (bool, error) {
	return r.move(id, model.RecipientSent, model.RecipientOpened, func(row *recipientRow) { row.OpenedAt = &at })
}

func (r *RecipientRepo) MarkClicked(_ context.Context, id int64, at time.Time) (bool, error) {
	return r.move(id, model.RecipientOpened, model.RecipientClicked, func(row *recipientRow) { row.ClickedAt = &at })
}

func (r *RecipientRepo) Aggregate(_ context.Context, campaignID int64) (map[model.RecipientStatus]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := map[model.RecipientStatus]int{}
	for _, s := range model.RecipientStatuses {
		counts[s] = 0
	}
	for _, row := range r.db.recipients {
		if row.CampaignID == campaignID {
			counts[row.Status]++
		}
	}
	return counts, nil
}

type TemplateRepo struct{ db *DB }

func (r *TemplateRepo) GetByID(_ context.Context, id int64) (*model.EmailTemplate, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

type CustomerRepo struct{ db *DB }

func (r *CustomerRepo) GetByID(_ context.Context, id int64) (*model.Customer, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

type LeadRepo struct{ db *DB }

func (r *LeadRepo) GetByID(_ context.Context, id int64) (*model.Lead, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	l, ok := r.db.leads[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

type UserRepo struct{ db *DB }

func (r *UserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// Message is one email handed to Mailer.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer records every send. Addresses in FailFor fail with the mapped error.
type Mailer struct {
	mu      sync.Mutex
	Sent    []Message
	FailFor map[string]error
	Err     error
}

func (m *Mailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailFor[to]; ok {
		return err
	}
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, Message{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *Mailer) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.Sent)
}

// Activity captures recorded entries.
type Activity struct {
	mu      sync.Mutex
	Entries []model.ActivityLog
}

func (a *Activity) Record(_ context.Context, e model.ActivityLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Entries = append(a.Entries, e)
}

func (a *Activity) Actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.Entries))
	for _, e := range a.Entries {
		out = append(out, e.Action)
	}
	return out
}

var (
	_ repository.TxRunner                     = (*Tx)(nil)
	_ repository.CampaignRepositoryInterface  = (*CampaignRepo)(nil)
	_ repository.RecipientRepositoryInterface = (*RecipientRepo)(nil)
	_ repository.TemplateRepositoryInterface  = (*TemplateRepo)(nil)
	_ repository.CustomerRepositoryInterface  = (*CustomerRepo)(nil)
	_ repository.LeadRepositoryInterface      = (*LeadRepo)(nil)
	_ repository.UserRepositoryInterface      = (*UserRepo)(nil)
)
