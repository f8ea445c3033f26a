package user_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/safebank/banking/internal/auth"
	"github.com/safebank/banking/internal/user"
)

func TestUserService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Service Suite")
}

type mockUserRepo struct {
	profiles map[int64]*user.Profile
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		profiles: map[int64]*user.Profile{
			1: {ID: 1, Email: "alice@example.com", FullName: "Alice", IsActive: true, Roles: []string{"customer"}},
			2: {ID: 2, Email: "bob@example.com", FullName: "Bob", IsActive: true, Roles: []string{"customer"}},
		},
	}
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*user.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return p, nil
}

func (m *mockUserRepo) List(ctx context.Context, limit, offset int) ([]*user.Profile, error) {
	out := make([]*user.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockUserRepo) UpdateRoles(ctx context.Context, userID int64, add, remove []string) error {
	p, ok := m.profiles[userID]
	if !ok {
		return user.ErrNotFound
	}
	for _, role := range add {
		p.Roles = append(p.Roles, role)
	}
	for _, role := range remove {
		for i, have := range p.Roles {
			if have == role {
				p.Roles = append(p.Roles[:i], p.Roles[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *mockUserRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	p, ok := m.profiles[userID]
	if !ok {
		return user.ErrNotFound
	}
	p.IsActive = active
	return nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, userID int64, fullName, phone *string) error {
	p, ok := m.profiles[userID]
	if !ok {
		return user.ErrNotFound
	}
	if fullName != nil {
		p.FullName = *fullName
	}
	if phone != nil {
		p.Phone = *phone
	}
	return nil
}

type mockRegistrar struct {
	lastRole       string
	lastMustChange bool
	result         *auth.User
	err            error
}

func (m *mockRegistrar) RegisterWithRole(ctx context.Context, dto auth.RegisterDTO, roleName string, mustChange bool) (*auth.User, error) {
	m.lastRole = roleName
	m.lastMustChange = mustChange
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		m.result = &auth.User{ID: 10, Email: dto.Email, Roles: []string{roleName}}
	}
	return m.result, nil
}

var _ = Describe("UserService", func() {
	var (
		svc       *user.Service
		repo      *mockUserRepo
		registrar *mockRegistrar
		admin     *auth.User
		customer  *auth.User
		ctx       context.Context
	)

	BeforeEach(func() {
		repo = newMockUserRepo()
		registrar = &mockRegistrar{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		svc = user.NewService(repo, registrar, auth.NewEngine(), nil, logger)
		ctx = context.Background()

		admin = &auth.User{ID: 99, Email: "admin@example.com", Roles: []string{"admin"}, Permissions: auth.RolePermissionMap["admin"]}
		customer = &auth.User{ID: 1, Email: "alice@example.com", Roles: []string{"customer"}, Permissions: auth.RolePermissionMap["customer"]}
	})

	Describe("Edit", func() {
		It("grants and revokes roles", func() {
			updated, err := svc.Edit(ctx, admin, user.EditUserDTO{
				UserID:     2,
				RolesToAdd: []string{"auditor"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Roles).To(ContainElement("auditor"))

			updated, err = svc.Edit(ctx, admin, user.EditUserDTO{
				UserID:        2,
				RolesToRemove: []string{"auditor"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Roles).NotTo(ContainElement("auditor"))
		})

		It("deactivates instead of deleting", func() {
			inactive := false
			updated, err := svc.Edit(ctx, admin, user.EditUserDTO{
				UserID:   2,
				IsActive: &inactive,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.IsActive).To(BeFalse())
		})

		It("rejects unknown roles before touching storage", func() {
			_, err := svc.Edit(ctx, admin, user.EditUserDTO{
				UserID:     2,
				RolesToAdd: []string{"superuser"},
			})
			Expect(err).To(MatchError(user.ErrUnknownRole))
		})

		It("denies callers without the edit permission", func() {
			_, err := svc.Edit(ctx, customer, user.EditUserDTO{
				UserID:     2,
				RolesToAdd: []string{"auditor"},
			})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})

		It("surfaces missing users", func() {
			active := true
			_, err := svc.Edit(ctx, admin, user.EditUserDTO{
				UserID:   404,
				IsActive: &active,
			})
			Expect(err).To(MatchError(user.ErrNotFound))
		})
	})

	Describe("CreateSupportAgent", func() {
		It("provisions an agent with a forced first-login rotation", func() {
			created, err := svc.CreateSupportAgent(ctx, admin, user.CreateSupportAgentDTO{
				Email:    "agent@example.com",
				FullName: "Agent",
				Password: "Agent#Pass1word",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.Roles).To(ContainElement("support_agent"))
			Expect(registrar.lastRole).To(Equal("support_agent"))
			Expect(registrar.lastMustChange).To(BeTrue())
		})

		It("denies non-admin callers", func() {
			_, err := svc.CreateSupportAgent(ctx, customer, user.CreateSupportAgentDTO{
				Email:    "agent@example.com",
				FullName: "Agent",
				Password: "Agent#Pass1word",
			})
			Expect(err).To(MatchError(auth.ErrPermissionDenied))
		})
	})

	Describe("Me", func() {
		It("returns the stored profile for the caller", func() {
			profile, err := svc.Me(ctx, customer)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Email).To(Equal("alice@example.com"))
		})
	})
})
