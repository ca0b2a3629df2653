// Command carinspect runs the vehicle pre-inspection pipeline from the
// command line.
//
// `carinspect analyze` runs every stage over a walk-around video or a photo
// set and stores the report; the stage commands (quality, frames, coverage,
// damage, tamper, audio) run one stage on its own for calibration work.
// Every command accepts --output table|json|yaml.
package main
