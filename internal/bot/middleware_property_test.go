// Property-based tests for the admin and whitelist checks backing the
// bot middleware.
package bot

import (
	"testing"

	"pgregory.net/rapid"

	"telegram-morning-bot/internal/config"
)

// TestAdminPermissionCheckProperty checks that a user passes the admin
// check exactly when their id is configured.
func TestAdminPermissionCheckProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(1, 10).Draw(t, "numAdmins")
		adminIDs := make([]int64, numAdmins)
		for i := 0; i < numAdmins; i++ {
			adminIDs[i] = rapid.Int64Range(1, 1000000000).Draw(t, "adminID")
		}

		cfg := &config.Config{
			Admin: config.AdminConfig{IDs: adminIDs},
		}

		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		expected := false
		for _, id := range adminIDs {
			if id == userID {
				expected = true
				break
			}
		}

		if got := cfg.IsAdmin(userID); got != expected {
			t.Fatalf("admin check mismatch: userID=%d, adminIDs=%v, expected=%v, got=%v",
				userID, adminIDs, expected, got)
		}
	})
}

// TestKnownAdminAlwaysRecognizedProperty checks that every configured
// admin id passes the check.
func TestKnownAdminAlwaysRecognizedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(1, 10).Draw(t, "numAdmins")
		adminIDs := make([]int64, numAdmins)
		for i := 0; i < numAdmins; i++ {
			adminIDs[i] = rapid.Int64Range(1, 1000000000).Draw(t, "adminID")
		}

		cfg := &config.Config{
			Admin: config.AdminConfig{IDs: adminIDs},
		}

		adminIndex := rapid.IntRange(0, numAdmins-1).Draw(t, "adminIndex")
		if !cfg.IsAdmin(adminIDs[adminIndex]) {
			t.Fatalf("known admin %d not recognized", adminIDs[adminIndex])
		}
	})
}

// TestWhitelistEnforcementProperty checks that a non-empty whitelist
// admits exactly its members, and an empty whitelist admits everyone.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(0, 10).Draw(t, "numChats")
		chats := make([]int64, numChats)
		for i := 0; i < numChats; i++ {
			chats[i] = rapid.Int64Range(-1000000000, -1).Draw(t, "chatID")
		}

		cfg := &config.Config{
			Whitelist: config.WhitelistConfig{Chats: chats},
		}

		chatID := rapid.Int64Range(-1000000000, -1).Draw(t, "probeChatID")

		expected := numChats == 0
		for _, id := range chats {
			if id == chatID {
				expected = true
				break
			}
		}

		if got := cfg.IsChatAllowed(chatID); got != expected {
			t.Fatalf("whitelist mismatch: chatID=%d, chats=%v, expected=%v, got=%v",
				chatID, chats, expected, got)
		}
	})
}
