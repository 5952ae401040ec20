// Package auth provides registration, login and identity resolution for a
// multi tenant backend where every user belongs to one or more organizations.
//
// Credentials:
//   - Login returns an organization API key, a long lived signed token that is
//     also persisted in organization_auth_tokens. Requests present it in the
//     x-api-key header and resolve to an Organization.
//   - Bearer access tokens are short lived signed tokens resolved from the
//     Authorization header to a UserIdentity. Activity is checked separately
//     with RequireActive.
//
// Tokens:
//   - TokenService decodes in two steps: Decode checks signature and claim
//     shape, CheckExpiry compares exp against a caller supplied time.
//
// Storage:
//   - Repositories are bun backed and come in Foo/FooTx pairs so commands can
//     compose them inside RepositoryManager.RunInTx. Migrate applies the
//     embedded schema for postgres or sqlite.
package auth
