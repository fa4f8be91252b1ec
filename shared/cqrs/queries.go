package cqrs

// ListAccountsQuery fetches a point-in-time snapshot of every account.
type ListAccountsQuery struct{}
