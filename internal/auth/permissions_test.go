package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("PermissionEngine", func() {
	engine := NewEngine()

	ginkgo.It("is a pure membership test over the granted set", func() {
		granted := []string{PermAccountsViewOwn, PermTransactionsDeposit}
		gomega.Expect(engine.HasPermission(granted, PermAccountsViewOwn)).To(gomega.BeTrue())
		gomega.Expect(engine.HasPermission(granted, PermAccountsViewAny)).To(gomega.BeFalse())
		gomega.Expect(engine.HasPermission(nil, PermAccountsViewOwn)).To(gomega.BeFalse())
	})

	ginkgo.It("treats own and any scopes as distinct codes", func() {
		gomega.Expect(engine.HasPermission([]string{PermAccountsViewOwn}, PermAccountsViewAny)).To(gomega.BeFalse())
		gomega.Expect(engine.HasPermission([]string{PermAccountsViewAny}, PermAccountsViewOwn)).To(gomega.BeFalse())
	})

	ginkgo.It("grants admins through explicit codes, not role names", func() {
		adminPerms := RolePermissionMap["admin"]
		for _, code := range AllPermissionCodes {
			gomega.Expect(engine.HasPermission(adminPerms, code)).To(gomega.BeTrue(), code)
		}
		// a made-up code is denied even for admins
		gomega.Expect(engine.HasPermission(adminPerms, "vault:open")).To(gomega.BeFalse())
	})

	ginkgo.It("reports any-of matches", func() {
		granted := RolePermissionMap["support_agent"]
		gomega.Expect(engine.HasAnyPermission(granted, []string{PermAuditView, PermTicketsViewAny})).To(gomega.BeTrue())
		gomega.Expect(engine.HasAnyPermission(granted, []string{PermAuditView, PermUsersEdit})).To(gomega.BeFalse())
	})

	ginkgo.It("lets auditors view and investigate, but not mutate", func() {
		auditor := RolePermissionMap["auditor"]
		gomega.Expect(engine.HasPermission(auditor, PermAuditView)).To(gomega.BeTrue())
		gomega.Expect(engine.HasPermission(auditor, PermAuditInvestigate)).To(gomega.BeTrue())
		gomega.Expect(engine.HasPermission(auditor, PermTransferInternal)).To(gomega.BeFalse())
		gomega.Expect(engine.HasPermission(auditor, PermUsersEdit)).To(gomega.BeFalse())
	})

	ginkgo.It("keeps the catalog and role matrix consistent", func() {
		catalog := make(map[string]bool, len(AllPermissionCodes))
		for _, code := range AllPermissionCodes {
			catalog[code] = true
		}
		for role, codes := range RolePermissionMap {
			for _, code := range codes {
				gomega.Expect(catalog[code]).To(gomega.BeTrue(), role+" grants unknown code "+code)
			}
		}
	})
})
