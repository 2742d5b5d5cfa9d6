// Package sentiment classifies feedback into positive, neutral or negative.
//
// Two policies exist. Keyword counts distinct list words contained anywhere in the
// lower-cased text; containment is by substring, so "goodbye" counts as "good".
// RatingWeighted decides on the numeric rating alone unless it is the middle value,
// in which case the free-text fields break the tie using a larger word list.
//
// All policies are pure and total: they never fail and always return one of the three labels.
package sentiment
