package memory

import (
	"testing"

	"github.com/dropDatabas3/securesign/internal/store/storetest"
)

func TestCredentials_Contract(t *testing.T) {
	storetest.RunCredentialStore(t, NewCredentials())
}

func TestDocuments_Contract(t *testing.T) {
	storetest.RunDocumentStore(t, NewDocuments())
}
