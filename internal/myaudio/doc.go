// Package myaudio reads and cuts PCM WAV recordings.
//
// Decoding goes through go-audio/wav. Samples are handled as integers while
// cutting, so clips keep the source sample rate, bit depth and channel
// layout. ReadWAV additionally folds the channels into a mono float64
// signal normalized to [-1, 1] for analysis.
package myaudio
