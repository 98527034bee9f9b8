package structure

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// cifAtom is one row of an mmCIF atom_site loop, reduced to what a PDB
// ATOM record needs.
type cifAtom struct {
	record  string
	name    string
	altLoc  string
	resName string
	chain   string
	resSeq  int
	iCode   string
	x, y, z float64
	occ     float64
	bFactor float64
	element string
}

// ConvertCIFToPDB renders the atom_site records of an mmCIF file as PDB
// ATOM/HETATM text. Chain identifiers are truncated to one character for
// PDB column compatibility; a blank chain becomes "A".
func ConvertCIFToPDB(cifText string) (string, error) {
	atoms, err := parseAtomSiteLoop(cifText)
	if err != nil {
		return "", err
	}
	if len(atoms) == 0 {
		return "", fmt.Errorf("no atom_site records found in CIF input")
	}

	var b strings.Builder
	for i, a := range atoms {
		name := a.name
		// Element symbols of one character start in column 14
		if len(name) < 4 && len(a.element) == 1 {
			name = " " + name
		}

		fmt.Fprintf(&b, "%-6s%5d %-4s%1s%3s %1s%4d%1s   %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
			a.record, i+1, name, a.altLoc, a.resName, a.chain, a.resSeq, a.iCode,
			a.x, a.y, a.z, a.occ, a.bFactor, a.element)
	}
	b.WriteString("END\n")
	return b.String(), nil
}

// parseAtomSiteLoop scans the CIF text for a loop_ block whose headers are
// _atom_site.* items and decodes its data rows.
func parseAtomSiteLoop(cifText string) ([]cifAtom, error) {
	scanner := bufio.NewScanner(strings.NewReader(cifText))
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var headers []string
	var atoms []cifAtom
	inLoop := false
	inAtomSite := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "loop_":
			inLoop = true
			inAtomSite = false
			headers = headers[:0]
			continue
		case line == "" || strings.HasPrefix(line, "#"):
			inLoop = false
			inAtomSite = false
			continue
		}

		if inLoop && strings.HasPrefix(line, "_") {
			if strings.HasPrefix(line, "_atom_site.") {
				headers = append(headers, strings.TrimPrefix(line, "_atom_site."))
				inAtomSite = true
			} else {
				inAtomSite = false
			}
			continue
		}

		if !inAtomSite {
			continue
		}
		if strings.HasPrefix(line, "_") || line == "loop_" {
			inAtomSite = false
			continue
		}

		fields := splitCIFRow(line)
		if len(fields) != len(headers) {
			continue
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			v := fields[i]
			if v == "?" || v == "." {
				v = ""
			}
			row[h] = v
		}
		atoms = append(atoms, atomFromRow(row))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan CIF input: %w", err)
	}

	return atoms, nil
}

func atomFromRow(row map[string]string) cifAtom {
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := row[k]; v != "" {
				return v
			}
		}
		return ""
	}

	record := pick("group_PDB")
	if record == "" {
		record = "ATOM"
	}

	chain := pick("auth_asym_id", "label_asym_id")
	if chain == "" {
		chain = DefaultChainID
	}
	// PDB has a single chain-id column
	chain = chain[:1]

	resSeq, _ := strconv.Atoi(pick("auth_seq_id", "label_seq_id"))
	x, _ := strconv.ParseFloat(row["Cartn_x"], 64)
	y, _ := strconv.ParseFloat(row["Cartn_y"], 64)
	z, _ := strconv.ParseFloat(row["Cartn_z"], 64)

	occ := 1.0
	if v := row["occupancy"]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			occ = f
		}
	}
	bFactor := 0.0
	if v := row["B_iso_or_equiv"]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			bFactor = f
		}
	}

	return cifAtom{
		record:  record,
		name:    pick("label_atom_id", "auth_atom_id"),
		altLoc:  pick("label_alt_id"),
		resName: pick("auth_comp_id", "label_comp_id"),
		chain:   chain,
		resSeq:  resSeq,
		iCode:   pick("pdbx_PDB_ins_code"),
		x:       x,
		y:       y,
		z:       z,
		occ:     occ,
		bFactor: bFactor,
		element: pick("type_symbol"),
	}
}

// splitCIFRow tokenizes one data row. Values in single or double quotes are
// kept whole; atom_site rows rarely need this but atom names like 'C1'' do.
func splitCIFRow(line string) []string {
	var fields []string
	var current strings.Builder
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote && (i+1 == len(line) || line[i+1] == ' ' || line[i+1] == '\t') {
				quote = 0
			} else {
				current.WriteByte(c)
			}
		case c == '\'' || c == '"':
			if current.Len() == 0 {
				quote = c
			} else {
				current.WriteByte(c)
			}
		case c == ' ' || c == '\t':
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
		default:
			current.WriteByte(c)
		}
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return fields
}
