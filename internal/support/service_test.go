package support_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/safebank/banking/internal/auth"
	"github.com/safebank/banking/internal/support"
)

func TestSupportService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Support Service Suite")
}

type mockTicketRepo struct {
	tickets map[int64]*support.Ticket
	nextID  int64
}

func newMockTicketRepo() *mockTicketRepo {
	return &mockTicketRepo{tickets: make(map[int64]*support.Ticket), nextID: 1}
}

func (m *mockTicketRepo) Create(ctx context.Context, t *support.Ticket) error {
	t.ID = m.nextID
	m.nextID++
	m.tickets[t.ID] = t
	return nil
}

func (m *mockTicketRepo) GetByID(ctx context.Context, id int64) (*support.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return nil, support.ErrNotFound
	}
	return t, nil
}

func (m *mockTicketRepo) GetByUserID(ctx context.Context, userID int64) ([]*support.Ticket, error) {
	var out []*support.Ticket
	for _, t := range m.tickets {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTicketRepo) ListAll(ctx context.Context, status string) ([]*support.Ticket, error) {
	var out []*support.Ticket
	for _, t := range m.tickets {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTicketRepo) Update(ctx context.Context, t *support.Ticket) error {
	if _, ok := m.tickets[t.ID]; !ok {
		return support.ErrNotFound
	}
	m.tickets[t.ID] = t
	return nil
}

func (m *mockTicketRepo) AddNote(ctx context.Context, note *support.Note) error {
	t, ok := m.tickets[note.TicketID]
	if !ok {
		return support.ErrNotFound
	}
	note.ID = int64(len(t.Notes) + 1)
	return nil
}

var _ = Describe("SupportService", func() {
	var (
		svc      *support.Service
		repo     *mockTicketRepo
		customer *auth.User
		agent    *auth.User
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockTicketRepo()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = support.NewService(repo, auth.NewEngine(), nil, logger)
		ctx = context.Background()

		customer = &auth.User{ID: 1, Email: "alice@example.com", Roles: []string{"customer"}, Permissions: auth.RolePermissionMap["customer"]}
		agent = &auth.User{ID: 7, Email: "agent@example.com", Roles: []string{"support_agent"}, Permissions: auth.RolePermissionMap["support_agent"]}
	})

	It("opens tickets for the caller with defaults applied", func() {
		ticket, err := svc.Create(ctx, customer, support.CreateTicketDTO{
			Subject:     "Card blocked",
			Description: "My card stopped working",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ticket.UserID).To(Equal(customer.ID))
		Expect(ticket.Status).To(Equal(support.StatusOpen))
		Expect(ticket.Priority).To(Equal(support.PriorityMedium))
	})

	It("keeps own-scope callers out of other users' tickets", func() {
		ticket, err := svc.Create(ctx, customer, support.CreateTicketDTO{
			Subject:     "Card blocked",
			Description: "details",
		})
		Expect(err).NotTo(HaveOccurred())

		stranger := &auth.User{ID: 2, Permissions: auth.RolePermissionMap["customer"]}
		_, err = svc.Get(ctx, stranger, ticket.ID)
		Expect(err).To(MatchError(auth.ErrPermissionDenied))

		got, err := svc.Get(ctx, agent, ticket.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.ID).To(Equal(ticket.ID))
	})

	It("lets agents move status, assign and leave a note", func() {
		ticket, err := svc.Create(ctx, customer, support.CreateTicketDTO{
			Subject:     "Card blocked",
			Description: "details",
		})
		Expect(err).NotTo(HaveOccurred())

		status := support.StatusResolved
		note := "re-issued the card"
		updated, err := svc.Update(ctx, agent, ticket.ID, support.UpdateTicketDTO{
			Status:     &status,
			AssignedTo: &agent.ID,
			Note:       &note,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(updated.Status).To(Equal(support.StatusResolved))
		Expect(updated.AssignedTo).To(Equal(&agent.ID))
		Expect(updated.ResolvedAt).NotTo(BeNil())
		Expect(updated.Notes).To(HaveLen(1))
		Expect(updated.Notes[0].AuthorID).To(Equal(agent.ID))
	})

	It("denies customers the update surface", func() {
		ticket, err := svc.Create(ctx, customer, support.CreateTicketDTO{
			Subject:     "Card blocked",
			Description: "details",
		})
		Expect(err).NotTo(HaveOccurred())

		status := support.StatusClosed
		_, err = svc.Update(ctx, customer, ticket.ID, support.UpdateTicketDTO{Status: &status})
		Expect(err).To(MatchError(auth.ErrPermissionDenied))
	})

	It("rejects unknown status values", func() {
		ticket, err := svc.Create(ctx, customer, support.CreateTicketDTO{
			Subject:     "Card blocked",
			Description: "details",
		})
		Expect(err).NotTo(HaveOccurred())

		bogus := "Escalated"
		_, err = svc.Update(ctx, agent, ticket.ID, support.UpdateTicketDTO{Status: &bogus})
		Expect(err).To(MatchError(support.ErrInvalidStatus))
	})
})
