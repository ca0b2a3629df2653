// Package confidence scores how far the generated report can be trusted,
// from 0 to 100. It measures the evidence behind the report, not the health
// of the vehicle: a perfect car filmed badly gets a low score.
package confidence
