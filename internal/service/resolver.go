package service

import (
	"context"
	"fmt"
	"iter"
	"strings"

	appErrors "github.com/unclebandit/crm-backend/internal/errors"
	"github.com/unclebandit/crm-backend/internal/model"
	"github.com/unclebandit/crm-backend/internal/repository"
)

// Contact is the addressable part of a recipient.
type Contact struct {
	Name  string
	Email string
}

// ContactLookup finds the contact behind one recipient kind. A nil contact
// with a nil error means not found.
type ContactLookup interface {
	LookupContact(ctx context.Context, id int64) (*Contact, error)
}

type CustomerLookup struct {
	Customers repository.CustomerRepositoryInterface
}

func (l *CustomerLookup) LookupContact(ctx context.Context, id int64) (*Contact, error) {
	c, err := l.Customers.GetByID(ctx, id)
	if err != nil || c == nil {
		return nil, err
	}
	return &Contact{Name: c.Name, Email: c.Email}, nil
}

// LeadLookup reads contact details from the customer a lead links to.
type LeadLookup struct {
	Leads     repository.LeadRepositoryInterface
	Customers repository.CustomerRepositoryInterface
}

func (l *LeadLookup) LookupContact(ctx context.Context, id int64) (*Contact, error) {
	lead, err := l.Leads.GetByID(ctx, id)
	if err != nil || lead == nil {
		return nil, err
	}
	if lead.CustomerID == nil {
		return nil, fmt.Errorf("lead %d has no linked customer", id)
	}
	c, err := l.Customers.GetByID(ctx, *lead.CustomerID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("lead %d links to missing customer %d", id, *lead.CustomerID)
	}
	return &Contact{Name: c.Name, Email: c.Email}, nil
}

// ResolvedRecipient is a record paired with a deliverable address.
type ResolvedRecipient struct {
	RecordID int64
	Kind     model.RecipientKind
	Name     string
	Email    string
}

// Resolution holds exactly one of Recipient or Err.
type Resolution struct {
	Record    *model.CampaignRecipient
	Recipient *ResolvedRecipient
	Err       *appErrors.RecipientResolutionError
}

func (r Resolution) Sendable() bool { return r.Recipient != nil }

type RecipientResolver struct {
	Lookups map[model.RecipientKind]ContactLookup
}

func NewRecipientResolver(customers repository.CustomerRepositoryInterface, leads repository.LeadRepositoryInterface) *RecipientResolver {
	return &RecipientResolver{
		Lookups: map[model.RecipientKind]ContactLookup{
			model.KindCustomer: &CustomerLookup{Customers: customers},
			model.KindLead:     &LeadLookup{Leads: leads, Customers: customers},
		},
	}
}

// Resolve yields one Resolution per record, looking each up only when the
// consumer asks for it.
func (r *RecipientResolver) Resolve(ctx context.Context, records []*model.CampaignRecipient) iter.Seq[Resolution] {
	return func(yield func(Resolution) bool) {
		for _, rec := range records {
			if !yield(r.ResolveOne(ctx, rec)) {
				return
			}
		}
	}
}

func (r *RecipientResolver) ResolveAll(ctx context.Context, records []*model.CampaignRecipient) []Resolution {
	out := make([]Resolution, 0, len(records))
	for res := range r.Resolve(ctx, records) {
		out = append(out, res)
	}
	return out
}

// ResolveOne never returns an error: every failure becomes an unsendable
// resolution carrying the reason.
func (r *RecipientResolver) ResolveOne(ctx context.Context, rec *model.CampaignRecipient) Resolution {
	unsendable := func(reason string) Resolution {
		return Resolution{Record: rec, Err: &appErrors.RecipientResolutionError{RecordID: rec.ID, Reason: reason}}
	}

	lookup, ok := r.Lookups[rec.RecipientType]
	if !ok {
		return unsendable(fmt.Sprintf("unknown recipient type %q", rec.RecipientType))
	}
	contact, err := lookup.LookupContact(ctx, rec.RecipientID)
	if err != nil {
		return unsendable(err.Error())
	}
	if contact == nil {
		return unsendable(fmt.Sprintf("%s %d not found", rec.RecipientType, rec.RecipientID))
	}
	email := strings.TrimSpace(contact.Email)
	if email == "" {
		return unsendable(fmt.Sprintf("%s %d has no email", rec.RecipientType, rec.RecipientID))
	}

	return Resolution{
		Record: rec,
		Recipient: &ResolvedRecipient{
			RecordID: rec.ID,
			Kind:     rec.RecipientType,
			Name:     contact.Name,
			Email:    email,
		},
	}
}
