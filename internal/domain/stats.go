package domain

// ResidentStats are the aggregate counts behind the dashboard, computed
// over non-deleted rows inside the caller's scope.
type ResidentStats struct {
	TotalResidents  int
	TotalHouseholds int

	// encoding activity
	RegisteredThisMonth int

	// by sex
	Male   int
	Female int

	// age bands
	AgeUnder15 int // 0-14
	Age15to59  int
	Age60Up    int // senior citizens

	// sectoral
	Voters      int
	PWDs        int
	SoloParents int
	OFWs        int
	LaborForce  int
	Indigenous  int

	// employment
	Employed   int
	Unemployed int
}

// GeoCount is one row of the per-area dashboard breakdown: resident and
// household counts for one child geography inside the caller's scope.
type GeoCount struct {
	Code       string
	Name       string
	Residents  int
	Households int
}
