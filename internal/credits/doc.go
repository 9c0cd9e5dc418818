// Package credits defines the fixed-point credit amount used by the ledger and
// the deterministic cost model that prices a job once its media is known.
//
// Amounts are stored as integer milli-credits so fractional balances such as
// 0.5 never accumulate floating point drift across many deductions.
package credits
