package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"saldo_insoluto_app_go/models"
	"saldo_insoluto_app_go/services"
)

// Lookup serves the autofill endpoints. Set from main after the
// spreadsheets are loaded.
var Lookup *services.ExcelLookup

func lookupReady(c echo.Context) error {
	if Lookup == nil || !Lookup.Loaded() {
		return c.JSON(http.StatusServiceUnavailable,
			map[string]string{"error": "datos de referencia no cargados"})
	}
	return nil
}

func queryRUT(c echo.Context) (string, error) {
	rut := c.QueryParam("rut")
	if rut == "" {
		return "", models.NewValidationError("parámetro 'rut' es requerido")
	}
	if err := services.CheckRUTFormat(rut); err != nil {
		return "", models.NewValidationError("%s", err.Error())
	}
	return rut, nil
}

// BuscarRepresentanteHandler autofills representante data by RUT
func BuscarRepresentanteHandler(c echo.Context) error {
	if err := lookupReady(c); err != nil {
		return err
	}
	rut, err := queryRUT(c)
	if err != nil {
		return respondError(c, err)
	}

	ref, ok := Lookup.BuscarRepresentante(rut)
	if !ok {
		return respondError(c, models.NewNotFoundError("representante no encontrado"))
	}
	return respondData(c, http.StatusOK, ref)
}

// BuscarCausanteHandler autofills causante data by RUT
func BuscarCausanteHandler(c echo.Context) error {
	if err := lookupReady(c); err != nil {
		return err
	}
	rut, err := queryRUT(c)
	if err != nil {
		return respondError(c, err)
	}

	ref, ok := Lookup.BuscarCausante(rut)
	if !ok {
		return respondError(c, models.NewNotFoundError("causante no encontrado"))
	}
	return respondData(c, http.StatusOK, ref)
}

// BuscarBeneficiariosHandler lists the beneficiarios registered under a
// causante's RUT
func BuscarBeneficiariosHandler(c echo.Context) error {
	if err := lookupReady(c); err != nil {
		return err
	}
	rut, err := queryRUT(c)
	if err != nil {
		return respondError(c, err)
	}

	refs := Lookup.BuscarBeneficiarios(rut)
	if refs == nil {
		refs = []services.BeneficiarioRef{}
	}
	return respondData(c, http.StatusOK, refs)
}

// BuscarBeneficiarioPorRUTHandler finds beneficiario rows by the
// beneficiario's own RUT
func BuscarBeneficiarioPorRUTHandler(c echo.Context) error {
	if err := lookupReady(c); err != nil {
		return err
	}
	rut, err := queryRUT(c)
	if err != nil {
		return respondError(c, err)
	}

	refs := Lookup.BuscarBeneficiarioPorRUT(rut)
	if refs == nil {
		refs = []services.BeneficiarioRef{}
	}
	return respondData(c, http.StatusOK, refs)
}

// RecargarExcelHandler rebuilds the lookup snapshot from disk
func RecargarExcelHandler(c echo.Context) error {
	if Lookup == nil {
		return c.JSON(http.StatusServiceUnavailable,
			map[string]string{"error": "datos de referencia no cargados"})
	}
	if err := Lookup.Reload(); err != nil {
		return respondError(c, models.NewDependencyError("error recargando datos de referencia", err))
	}
	return respondData(c, http.StatusOK, Lookup.Status())
}

// ExcelStatusHandler describes the current lookup snapshot
func ExcelStatusHandler(c echo.Context) error {
	if Lookup == nil {
		return respondData(c, http.StatusOK, map[string]interface{}{"loaded": false})
	}
	return respondData(c, http.StatusOK, Lookup.Status())
}
