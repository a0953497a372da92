package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Submission status constants
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Newsletter status constants
const (
	NewsletterActive       = "active"
	NewsletterUnsubscribed = "unsubscribed"
)

// Notification kind constants
const (
	KindWaitlist = "waitlist"
	KindContact  = "contact"
	KindReferral = "referral"
)

// RequestMeta carries request attribution captured with every submission.
type RequestMeta struct {
	Source    string `json:"source"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent"`
}

// WaitlistEntry is a prospective guest waiting for an opening.
// Position is assigned once at creation and never reused.
type WaitlistEntry struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	Message   string    `json:"message,omitempty"`
	Position  int64     `json:"position"`
	Status    string    `json:"status"`
	Source    string    `json:"source,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContactSubmission is a general inquiry from the contact form.
type ContactSubmission struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Source    string    `json:"source,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Referral is a provider-submitted patient referral. Status moves from
// pending to approved or rejected through admin review only.
type Referral struct {
	ID            uuid.UUID `json:"id"`
	ReferrerName  string    `json:"referrer_name"`
	ReferrerEmail string    `json:"referrer_email"`
	Organization  string    `json:"organization,omitempty"`
	PatientName   string    `json:"patient_name"`
	PatientEmail  string    `json:"patient_email,omitempty"`
	PatientPhone  string    `json:"patient_phone,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	ContactCount  int       `json:"contact_count"`
	Source        string    `json:"source,omitempty"`
	ClientIP      string    `json:"client_ip,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewsletterSubscription is keyed by case-normalized email. The unsubscribe
// token is a one-way hash; matching it is the only unsubscribe capability.
type NewsletterSubscription struct {
	Email            string     `json:"email"`
	Status           string     `json:"status"`
	Source           string     `json:"source,omitempty"`
	UnsubscribeToken string     `json:"-"`
	SubscribedAt     time.Time  `json:"subscribed_at"`
	UnsubscribedAt   *time.Time `json:"unsubscribed_at,omitempty"`
}

// Notification is an append-only dashboard activity record.
type Notification struct {
	ID        uuid.UUID       `json:"id"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Link      string          `json:"link,omitempty"`
	Read      bool            `json:"read"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// User is an admin dashboard account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
