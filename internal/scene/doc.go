// Package scene loads test-scene definitions and expands them into
// concrete test instances.
//
// # Scene Layout
//
// Scenes live under a root directory, one category per subdirectory:
//
//	test_scenes/
//	  geometry/
//	    triangles.json
//	    ref_triangles_color.png
//	    ref_triangles_depth.png
//	  camera/
//	    distance.cue
//
// A scene file is merged over the embedded default document, validated
// against the embedded JSON schema and frozen as a Definition.
//
// # Scene Format
//
//	{
//	  "sceneParameters": {"geometrySubtype": "triangle", "primitiveCount": 4},
//	  "requiredFeatures": ["ANARI_KHR_GEOMETRY_TRIANGLE"],
//	  "permutations": {"primitiveMode": ["soup", "indexed"]},
//	  "variants": {"color": ["red", "blue"]},
//	  "metaData": {"soup": {"bounds": {"world": [[0,0,0],[1,1,0]]}}},
//	  "boundsTolerance": 0.001
//	}
//
// Axes are expanded in declaration order with the last axis varying
// fastest. Each instance is named from the scene name, the permutation
// values and the variant values, and reference images are found by that
// exact name.
package scene
