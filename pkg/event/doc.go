// Package event assembles impression and conversion payloads.
//
// An Assembler turns decisions into LogEvent values ready for a
// dispatcher. Only attributes declared in the configuration revision (plus
// reserved $opt_ attributes) are forwarded. Conversions are built only for
// users holding a decision in at least one experiment that references the
// event. Numeric revenue and value tags are coerced exactly; malformed ones
// are dropped from the metrics and kept in the raw tags.
package event
