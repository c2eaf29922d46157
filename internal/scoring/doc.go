// Package scoring turns the risks found for a project and the number of leaked secrets into a
// trust score between 0 and 100.
//
// The score starts at MaxScore and every finding subtracts a fixed penalty. Unknown severities
// cost nothing and the score never drops below MinScore.
package scoring
