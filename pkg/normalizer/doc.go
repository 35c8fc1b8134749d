// Package normalizer provides the property normalizers applied to headless
// field values.
//
// A normalizer turns a raw editable value (an image, a link, a thumbnail)
// into the plain data sent to API consumers. Normalizers are registered by
// name in a Registry; configuration refers to them through
// property_normalizer, additional_property_normalizer and
// property_normalizer.default_type_mapping.
//
// Looking up an unknown name fails with a not-found error carrying the code
// NORMALIZER_NOT_FOUND; callers treat it as a hard failure of the unit being
// processed.
//
// Besides Go implementations, a normalizer can be a Starlark script:
//
//	def normalize(value, context_id):
//	    if context_id == "blog":
//	        return value.upper()
//	    return value
package normalizer
