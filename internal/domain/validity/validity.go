// Package validity holds the atomic rules that decide whether a view or a
// transaction counts toward an offer receipt. Times are hours since the
// start of observation.
package validity

// IsValidView reports whether a view at viewedTime falls inside the window of
// an offer received at receivedTime.
func IsValidView(receivedTime, viewedTime, durationHours int) bool {
	elapsed := viewedTime - receivedTime
	return elapsed >= 0 && elapsed <= durationHours
}

// IsValidCompletion reports whether a transaction completes an offer: it
// happens inside the validity window, not before the view, and spends at
// least the offer difficulty.
func IsValidCompletion(receivedTime, viewedTime, transactionTime int, amount, difficulty float64, durationHours int) bool {
	elapsed := transactionTime - receivedTime
	return elapsed >= 0 &&
		elapsed <= durationHours &&
		transactionTime >= viewedTime &&
		amount >= difficulty
}
