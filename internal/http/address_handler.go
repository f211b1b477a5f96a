package httpapi

import (
	"net/http"

	"citizenly-registry/internal/service"

	"go.uber.org/zap"
)

// AddressHandler serves the PSGC reference data behind the address
// pickers. Reference data is not geography-scoped: any authenticated
// operator can browse the whole tree.
type AddressHandler struct {
	addressService service.AddressService
	logger         *zap.Logger
}

func NewAddressHandler(addressService service.AddressService, logger *zap.Logger) *AddressHandler {
	return &AddressHandler{addressService: addressService, logger: logger}
}

func (h *AddressHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions, err := h.addressService.ListRegions(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, regions)
}

func (h *AddressHandler) ListProvinces(w http.ResponseWriter, r *http.Request) {
	provinces, err := h.addressService.ListProvinces(r.Context(), r.URL.Query().Get("region_code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, provinces)
}

func (h *AddressHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.addressService.ListCities(r.Context(), r.URL.Query().Get("province_code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, cities)
}

func (h *AddressHandler) ListBarangays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.addressService.ListBarangays(r.Context(), service.ListBarangaysRequest{
		CityCode: q.Get("city_code"),
		Search:   q.Get("search"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 0),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *AddressHandler) ResolveBarangay(w http.ResponseWriter, r *http.Request) {
	ancestry, err := h.addressService.ResolveBarangay(r.Context(), r.URL.Query().Get("barangay_code"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, ancestry)
}
