// Package report renders stored extraction results into spreadsheets.
package report
