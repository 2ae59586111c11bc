// Package policy maps company display names onto closed billing-rule
// variants. All name matching lives here; the resolver, calculator and
// builder key off the typed policy, never off raw strings.
package policy

// Company display names with bespoke billing rules. These match rows of the
// companies collection; renaming a company there requires updating this
// mapping, which is the single place names are interpreted.
const (
	CompanyNorwegian = "Norwegian Cruise Lines"
	CompanyOceania   = "OCEANIA CRUISE LINES"
	CompanyRegent    = "REGENT CRUISE LINES"
	CompanyPrincess  = "Princess Cruises"
)

// Kind discriminates the billing policy variants.
type Kind int

const (
	// KindStandard bills the company's own placements with embarkation up
	// to two months back, priced at position price.
	KindStandard Kind = iota

	// KindFleetGroup bills a parent company for its own placements plus
	// those of its affiliates, under the standard window.
	KindFleetGroup

	// KindAffiliate marks a company billed only through its parent's fleet
	// run; resolving it directly yields nothing.
	KindAffiliate

	// KindMonthlyFixed restricts the window to the previous calendar month
	// and applies fixed fees: returning crew at a flat rate, onboard
	// placements billed twice with the repeat occurrence at a flat rate.
	KindMonthlyFixed
)

// BillingPolicy is the resolved rule set for one company's billing run.
type BillingPolicy struct {
	Kind Kind

	// AffiliateNames lists the affiliate company display names swept into
	// a fleet-group run.
	AffiliateNames []string

	// Fixed fees for KindMonthlyFixed.
	ReturningCrewFee float64
	RepeatOnboardFee float64
	DuplicateOnboard bool
}

// ForCompany resolves the billing policy for a company display name.
func ForCompany(name string) BillingPolicy {
	switch name {
	case CompanyNorwegian:
		return BillingPolicy{
			Kind:           KindFleetGroup,
			AffiliateNames: []string{CompanyOceania, CompanyRegent},
		}
	case CompanyOceania, CompanyRegent:
		return BillingPolicy{Kind: KindAffiliate}
	case CompanyPrincess:
		return BillingPolicy{
			Kind:             KindMonthlyFixed,
			ReturningCrewFee: 95,
			RepeatOnboardFee: 125,
			DuplicateOnboard: true,
		}
	default:
		return BillingPolicy{Kind: KindStandard}
	}
}
