package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditLogIsLogin(t *testing.T) {
	cases := []struct {
		name  string
		entry AuditLog
		want  bool
	}{
		{"typed login", AuditLog{EventType: AuditEventLogin, Action: "User bob logged in"}, true},
		{"typed other", AuditLog{EventType: AuditEventUserCreated, Action: "Admin logged in bob"}, false},
		{"legacy login", AuditLog{Action: "User carol logged in"}, true},
		{"legacy other", AuditLog{Action: "Admin admin created user carol"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.entry.IsLogin())
		})
	}
	assert.Equal(t, "%logged in%", LegacyLoginPattern())
}

func TestUserRoleValid(t *testing.T) {
	assert.True(t, RoleEditor.Valid())
	assert.False(t, UserRole("owner").Valid())
}
