// Package vision implements the pixel primitives the inspection stages share:
// float gray planes, Gaussian/Laplacian/Sobel filters, Canny edges, binary
// masks with median filtering and connected components, L*a*b* and HSV
// channel extraction, Shi-Tomasi corners, and pyramidal Lucas-Kanade flow.
//
// Values follow 8-bit conventions (luma 0-255, Lab offset by 128) so stage
// thresholds read the same as the calibrated defaults in config.
package vision
