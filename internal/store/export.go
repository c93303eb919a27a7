package store

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/ajuntament-olot/pla-usos/internal/model"
)

// exportHeader is the column layout of the admin export workbook.
var exportHeader = []string{
	"Id", "Data", "DNI", "Nom", "Actua com a", "Codi domicili", "Adreça",
	"Epígraf", "Altres activitats", "Descripció altres", "Condició", "Valor", "Resultat",
}

// ExportXLSX writes the consultation log to an xlsx workbook for the
// administration back office.
func ExportXLSX(consultations []model.Consultation, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Consultes")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().Value = h
	}

	for _, c := range consultations {
		row := sheet.AddRow()
		row.AddCell().Value = c.ID
		row.AddCell().Value = c.CreatedAt.Format("02-01-2006")
		row.AddCell().Value = c.Requester.DNI
		row.AddCell().Value = c.Requester.Name
		row.AddCell().Value = c.Requester.Role
		row.AddCell().Value = c.DomCode
		row.AddCell().Value = c.StreetLine
		row.AddCell().Value = formatInt64Ptr(c.HeadingID)
		row.AddCell().Value = boolCatalan(c.OtherActivity)
		row.AddCell().Value = c.OtherDescription
		row.AddCell().Value = formatIntPtr(c.ConditionCode)
		row.AddCell().Value = formatIntPtr(c.ConditionValue)
		row.AddCell().Value = string(c.Verdict)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func formatInt64Ptr(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func boolCatalan(b bool) string {
	if b {
		return "sí"
	}
	return "no"
}
