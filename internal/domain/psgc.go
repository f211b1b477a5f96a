package domain

import "time"

// PSGC reference entities (psgc_* tables). Codes follow the Philippine
// Standard Geographic Code: 2-digit region, 4-digit province, 6-digit
// city/municipality, 9-digit barangay. Rows are loaded from PSA
// publications and never edited through the API.

// Region  (psgc_regions table)
type Region struct {
	Code      string    `db:"code"` // VARCHAR(10), PRIMARY KEY
	Name      string    `db:"name"` // VARCHAR(100), NOT NULL
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Province  (psgc_provinces table)
type Province struct {
	Code       string    `db:"code"`        // VARCHAR(10), PRIMARY KEY
	Name       string    `db:"name"`        // VARCHAR(100), NOT NULL
	RegionCode string    `db:"region_code"` // VARCHAR(10), NOT NULL, FK -> psgc_regions.code
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// City  (psgc_cities table; cities and municipalities share the level)
type City struct {
	Code         string    `db:"code"`          // VARCHAR(10), PRIMARY KEY
	Name         string    `db:"name"`          // VARCHAR(100), NOT NULL
	ProvinceCode string    `db:"province_code"` // VARCHAR(10), NOT NULL, FK -> psgc_provinces.code
	Level        string    `db:"level"`         // VARCHAR(10), NOT NULL ('City'/'Mun'/'SubMun')
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Barangay  (psgc_barangays table)
type Barangay struct {
	Code       string    `db:"code"`        // VARCHAR(10), PRIMARY KEY
	Name       string    `db:"name"`        // VARCHAR(100), NOT NULL
	CityCode   string    `db:"city_code"`   // VARCHAR(10), NOT NULL, FK -> psgc_cities.code
	UrbanRural string    `db:"urban_rural"` // VARCHAR(10), nullable ('Urban'/'Rural')
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// GeoAncestry is the full chain for one barangay, produced by joining the
// four reference tables. It is the only sanctioned source for the
// denormalized city/province/region columns stored on residents,
// households and user profiles.
type GeoAncestry struct {
	BarangayCode string
	BarangayName string
	CityCode     string
	CityName     string
	ProvinceCode string
	ProvinceName string
	RegionCode   string
	RegionName   string
}
