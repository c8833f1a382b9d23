package messaging

// SalesCompletedSubject is the subject used for events emitted after a sale commits.
const SalesCompletedSubject = "sales.completed"
