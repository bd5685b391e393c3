// Package sanitize turns raw text files into the cleaned documents the ngram
// builder counts: lowercase, restricted to an alphabet, with words separated
// by single spaces.
package sanitize
