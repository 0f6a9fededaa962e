// Package authsession provides a client-side authentication session manager.
//
// A SessionManager sits between an application and a remote identity
// provider. It turns the provider's registration, confirmation and login
// operations into one uniform contract and keeps the resulting tokens in a
// durable, client-local CredentialStore.
//
// # Session state
//
// A session is authenticated if and only if an access token is present in the
// CredentialStore. There is no cached "logged in" flag: IsAuthenticated reads
// the store on every call, so clearing the store from outside (another tool,
// a user deleting the credentials file) is observed immediately.
//
// The manager also keeps an in-memory handle to the identity of the most
// recent successful login. That handle does not survive a restart, while the
// stored tokens do.
//
// # Basic Usage
//
//	import (
//	    "github.com/panyam/authsession"
//	    "github.com/panyam/authsession/providers/cognito"
//	    "github.com/panyam/authsession/stores/fs"
//	)
//
//	provider, err := cognito.New(ctx, cognito.Config{
//	    UserPoolID: "us-east-1_AbCdEf123",
//	    ClientID:   "3n4b5urk1ft4fl3mg5e62d9ado",
//	})
//	store, err := fs.NewCredentialStore("", "myapp")
//
//	sessions := authsession.New(provider, store)
//
//	if _, err := sessions.Authenticate(ctx, "user@example.com", "s3cret-pass"); err != nil {
//	    if authsession.IsReason(err, "NotAuthorizedException") {
//	        // wrong username or password
//	    }
//	}
//
//	token, ok := sessions.GetAccessToken()
//
// # Asynchronous calls
//
// Every provider-backed operation has an Async variant returning a Future
// that settles exactly once with the provider's payload or error:
//
//	f := sessions.AuthenticateAsync(ctx, "user@example.com", "s3cret-pass")
//	// ... do other work ...
//	result, err := f.Await()
//
// Overlapping Authenticate calls are not serialized. Whichever call completes
// last owns the stored credentials and the current identity.
//
// # Downstream calls
//
// TokenSource and HTTPClient expose the stored access token to HTTP clients;
// the grpc subpackage does the same for gRPC connections.
package authsession
