// Package webui contains small, pure HTML helpers for the portal shell:
// escaping, the header/sidebar layout, the user avatar and the theme button.
//
// Everything here returns H values. H is treated as already-escaped markup;
// build it from Esc for untrusted text and Raw only for constant markup.
package webui
