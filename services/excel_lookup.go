package services

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xuri/excelize/v2"
)

// RepresentanteRef is one autofill row from representantes.xlsx
type RepresentanteRef struct {
	RUT             string `json:"rut"`
	Calidad         string `json:"calidad"`
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
	Telefono        string `json:"telefono"`
	Direccion       string `json:"direccion"`
	Comuna          string `json:"comuna"`
	Region          string `json:"region"`
	Email           string `json:"email"`
}

// CausanteRef is one autofill row from causantes.xlsx
type CausanteRef struct {
	RUT             string `json:"rut"`
	Nacionalidad    string `json:"nacionalidad"`
	Nombre          string `json:"nombre"`
	ApellidoPaterno string `json:"apellido_paterno"`
	ApellidoMaterno string `json:"apellido_materno"`
	FechaDefuncion  string `json:"fecha_defuncion"`
	ComunaDefuncion string `json:"comuna_defuncion"`
}

// BeneficiarioRef is one autofill row from beneficiarios.xlsx
type BeneficiarioRef struct {
	RUTCausante     string `json:"rut_causante"`
	RUTBeneficiario string `json:"rut_beneficiario"`
	NombreCompleto  string `json:"nombre_completo"`
	Parentesco      string `json:"parentesco"`
}

// LookupTables is an immutable snapshot of the three reference
// spreadsheets, keyed by normalized RUT. A reload builds a fresh
// snapshot and swaps it atomically; readers never see a partial load.
type LookupTables struct {
	Representantes  map[string]RepresentanteRef
	Causantes       map[string]CausanteRef
	PorCausante     map[string][]BeneficiarioRef
	PorBeneficiario map[string][]BeneficiarioRef
	LoadedAt        time.Time
}

// ExcelLookup serves autofill lookups against the current snapshot
type ExcelLookup struct {
	dir    string
	tables atomic.Pointer[LookupTables]
}

// NewExcelLookup builds a lookup service over the spreadsheet directory.
// Call Load before serving requests.
func NewExcelLookup(dir string) *ExcelLookup {
	return &ExcelLookup{dir: dir}
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func cell(row []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if i, ok := idx[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
	}
	return ""
}

// column name containing all the given fragments, for the loosely named
// beneficiarios sheet
func fuzzyColumn(idx map[string]int, fragments ...string) (int, bool) {
	for name, i := range idx {
		match := true
		for _, frag := range fragments {
			if !strings.Contains(name, frag) {
				match = false
				break
			}
		}
		if match {
			return i, true
		}
	}
	return 0, false
}

func readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("error abriendo %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s no tiene hojas", filepath.Base(path))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("error leyendo %s: %w", filepath.Base(path), err)
	}
	return rows, nil
}

func loadRepresentantes(path string) (map[string]RepresentanteRef, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]RepresentanteRef)
	if len(rows) < 2 {
		return out, nil
	}
	idx := headerIndex(rows[0])
	for _, row := range rows[1:] {
		rut := NormalizeRUT(cell(row, idx, "rut representante", "rut"))
		if rut == "" {
			continue
		}
		if _, exists := out[rut]; exists {
			continue
		}
		out[rut] = RepresentanteRef{
			RUT:             FormatRUT(rut),
			Calidad:         cell(row, idx, "calidad"),
			Nombre:          cell(row, idx, "nombres", "nombre"),
			ApellidoPaterno: cell(row, idx, "apellido paterno"),
			ApellidoMaterno: cell(row, idx, "apellido materno"),
			Telefono:        cell(row, idx, "teléfono", "telefono"),
			Direccion:       cell(row, idx, "domicilio", "direccion"),
			Comuna:          cell(row, idx, "comuna"),
			Region:          cell(row, idx, "región", "region"),
			Email:           cell(row, idx, "email"),
		}
	}
	return out, nil
}

func loadCausantes(path string) (map[string]CausanteRef, error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]CausanteRef)
	if len(rows) < 2 {
		return out, nil
	}
	idx := headerIndex(rows[0])
	for _, row := range rows[1:] {
		rut := NormalizeRUT(cell(row, idx, "rut causante", "rut"))
		if rut == "" {
			continue
		}
		if _, exists := out[rut]; exists {
			continue
		}
		fecha := cell(row, idx, "fecha defunción", "fecha defuncion", "fecha_defuncion")
		// keep just the date when the cell carries a time component
		if i := strings.Index(fecha, " "); i > 0 {
			fecha = fecha[:i]
		}
		out[rut] = CausanteRef{
			RUT:             FormatRUT(rut),
			Nacionalidad:    cell(row, idx, "nacionalidad"),
			Nombre:          cell(row, idx, "nombres", "nombre"),
			ApellidoPaterno: cell(row, idx, "apellido paterno"),
			ApellidoMaterno: cell(row, idx, "apellido materno"),
			FechaDefuncion:  fecha,
			ComunaDefuncion: cell(row, idx, "comuna fallecimiento", "comuna defunción", "comuna"),
		}
	}
	return out, nil
}

func loadBeneficiarios(path string) (porCausante, porBeneficiario map[string][]BeneficiarioRef, err error) {
	rows, err := readSheet(path)
	if err != nil {
		return nil, nil, err
	}
	porCausante = make(map[string][]BeneficiarioRef)
	porBeneficiario = make(map[string][]BeneficiarioRef)
	if len(rows) < 2 {
		return porCausante, porBeneficiario, nil
	}
	idx := headerIndex(rows[0])

	causanteCol, haveCausante := fuzzyColumn(idx, "causante", "rut")
	benCol, haveBen := fuzzyColumn(idx, "beneficiario", "rut")
	if !haveBen {
		if i, ok := idx["run"]; ok {
			benCol, haveBen = i, true
		}
	}

	for _, row := range rows[1:] {
		ref := BeneficiarioRef{
			NombreCompleto: cell(row, idx, "nombre completo", "nombre"),
			Parentesco:     cell(row, idx, "parentesco"),
		}
		if haveCausante && causanteCol < len(row) {
			ref.RUTCausante = NormalizeRUT(row[causanteCol])
		}
		if haveBen && benCol < len(row) {
			ref.RUTBeneficiario = NormalizeRUT(row[benCol])
		}
		if ref.RUTCausante == "" && ref.RUTBeneficiario == "" {
			continue
		}
		if ref.RUTCausante != "" {
			porCausante[ref.RUTCausante] = append(porCausante[ref.RUTCausante], ref)
		}
		if ref.RUTBeneficiario != "" {
			porBeneficiario[ref.RUTBeneficiario] = append(porBeneficiario[ref.RUTBeneficiario], ref)
		}
	}
	return porCausante, porBeneficiario, nil
}

// Load reads the three spreadsheets and swaps in the new snapshot
func (l *ExcelLookup) Load() error {
	representantes, err := loadRepresentantes(filepath.Join(l.dir, "representantes.xlsx"))
	if err != nil {
		return err
	}
	causantes, err := loadCausantes(filepath.Join(l.dir, "causantes.xlsx"))
	if err != nil {
		return err
	}
	porCausante, porBeneficiario, err := loadBeneficiarios(filepath.Join(l.dir, "beneficiarios.xlsx"))
	if err != nil {
		return err
	}

	tables := &LookupTables{
		Representantes:  representantes,
		Causantes:       causantes,
		PorCausante:     porCausante,
		PorBeneficiario: porBeneficiario,
		LoadedAt:        time.Now(),
	}
	l.tables.Store(tables)
	log.Printf("Excel cargados: %d representantes, %d causantes, %d causantes con beneficiarios",
		len(representantes), len(causantes), len(porCausante))
	return nil
}

// Reload rebuilds the snapshot from disk. On failure the previous
// snapshot stays in service.
func (l *ExcelLookup) Reload() error {
	return l.Load()
}

// Loaded reports whether a snapshot is in service
func (l *ExcelLookup) Loaded() bool {
	return l.tables.Load() != nil
}

// Status describes the current snapshot
func (l *ExcelLookup) Status() map[string]interface{} {
	t := l.tables.Load()
	if t == nil {
		return map[string]interface{}{"loaded": false}
	}
	return map[string]interface{}{
		"loaded":         true,
		"loaded_at":      t.LoadedAt,
		"representantes": len(t.Representantes),
		"causantes":      len(t.Causantes),
		"beneficiarios":  len(t.PorCausante),
	}
}

// BuscarRepresentante returns the representante autofill row for a RUT
func (l *ExcelLookup) BuscarRepresentante(rut string) (*RepresentanteRef, bool) {
	t := l.tables.Load()
	if t == nil {
		return nil, false
	}
	ref, ok := t.Representantes[NormalizeRUT(rut)]
	if !ok {
		return nil, false
	}
	return &ref, true
}

// BuscarCausante returns the causante autofill row for a RUT
func (l *ExcelLookup) BuscarCausante(rut string) (*CausanteRef, bool) {
	t := l.tables.Load()
	if t == nil {
		return nil, false
	}
	ref, ok := t.Causantes[NormalizeRUT(rut)]
	if !ok {
		return nil, false
	}
	return &ref, true
}

// BuscarBeneficiarios lists the beneficiarios registered under a
// causante's RUT
func (l *ExcelLookup) BuscarBeneficiarios(rutCausante string) []BeneficiarioRef {
	t := l.tables.Load()
	if t == nil {
		return nil
	}
	return t.PorCausante[NormalizeRUT(rutCausante)]
}

// BuscarBeneficiarioPorRUT finds beneficiario rows by the
// beneficiario's own RUT
func (l *ExcelLookup) BuscarBeneficiarioPorRUT(rut string) []BeneficiarioRef {
	t := l.tables.Load()
	if t == nil {
		return nil
	}
	return t.PorBeneficiario[NormalizeRUT(rut)]
}
