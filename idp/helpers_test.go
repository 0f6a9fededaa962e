package idp_test

import "github.com/panyam/authsession/stores/memory"

func newStore() *memory.CredentialStore {
	return memory.NewCredentialStore(nil)
}
