// Package ws2812 drives a single WS2812/WS2812b/SK6812 RGB LED through a
// pulse train channel.
//
// Each bit of the 24 bit GRB value is sent as a high pulse followed by a
// low pulse; the ratio of the two encodes the bit. The channel is
// calibrated once at construction and a reset signal arms the LED before
// the first frame.
//
// Datasheet
//
// https://github.com/cpldcpu/light_ws2812/tree/master/Datasheets
package ws2812
