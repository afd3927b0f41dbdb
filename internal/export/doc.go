// Package export turns one demo file into the report workbook.
//
// SingleExport resolves the match identity from the demo header, then
// either analyzes the demo (writing the result through to the cache) or
// loads the cached model, and finally runs every registered sheet
// generator in order against a shared workbook.
//
//	exp := export.NewSingleExport(parser, store, export.WithLogger(logger))
//	res := exp.Generate(ctx, export.Configuration{DemoPath: "match.dem"})
//	if res.Status == export.StatusCompleted {
//		err = res.Workbook.SaveAs("match.xlsx")
//	}
//
// Cancellation is cooperative. The context passed to Generate is checked
// after the identity is resolved, before the cache write, after the model
// is ready and after every sheet. A cancelled run never returns a workbook.
package export
