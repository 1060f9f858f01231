package services

import (
	"fmt"

	"github.com/chatq/assist-backend/internal/core"
	"github.com/chatq/assist-backend/internal/models"
)

// Action names an admin capability checked against a role.
type Action string

const (
	ActionViewFaqs          Action = "faqs:view"
	ActionManageFaqs        Action = "faqs:manage"
	ActionViewDocuments     Action = "documents:view"
	ActionManageDocuments   Action = "documents:manage"
	ActionViewConversations Action = "conversations:view"
)

// Authorize checks whether an actor with the given role in actorTenant
// may perform action on targetTenant's data. SUPER_ADMIN crosses tenant
// boundaries; everyone else is confined to their own tenant, and
// TENANT_USER to read-only actions.
func Authorize(role, actorTenant, targetTenant string, action Action) error {
	if role == models.RoleSuperAdmin {
		return nil
	}
	if actorTenant != targetTenant {
		return fmt.Errorf("%w: tenant mismatch", core.ErrForbidden)
	}

	switch role {
	case models.RoleTenantAdmin:
		return nil
	case models.RoleTenantUser:
		switch action {
		case ActionViewFaqs, ActionViewDocuments, ActionViewConversations:
			return nil
		}
		return fmt.Errorf("%w: role %s may not %s", core.ErrForbidden, role, action)
	default:
		return fmt.Errorf("%w: unknown role %q", core.ErrForbidden, role)
	}
}
