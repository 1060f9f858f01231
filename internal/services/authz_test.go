package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatq/assist-backend/internal/models"
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name         string
		role         string
		actorTenant  string
		targetTenant string
		action       Action
		allowed      bool
	}{
		{"super admin crosses tenants", models.RoleSuperAdmin, "t1", "t2", ActionManageFaqs, true},
		{"tenant admin manages own tenant", models.RoleTenantAdmin, "t1", "t1", ActionManageDocuments, true},
		{"tenant admin blocked cross tenant", models.RoleTenantAdmin, "t1", "t2", ActionViewFaqs, false},
		{"tenant user may view", models.RoleTenantUser, "t1", "t1", ActionViewDocuments, true},
		{"tenant user may not manage", models.RoleTenantUser, "t1", "t1", ActionManageFaqs, false},
		{"tenant user views conversations", models.RoleTenantUser, "t1", "t1", ActionViewConversations, true},
		{"unknown role denied", "GUEST", "t1", "t1", ActionViewFaqs, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.role, tc.actorTenant, tc.targetTenant, tc.action)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
