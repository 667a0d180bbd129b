// Package harness runs the conformance operations against a backend.
//
// Every operation takes its settings from one Config value:
//
//   - RenderScenes renders every instance and writes its color and depth
//     images to <output>/<category>/<stem>_<channel>.png.
//   - CompareImages scores existing candidates against the reference
//     images stored next to each scene file.
//   - QueryFeatures lists the capability flags of the device.
//   - QueryMetadata lists the parameters the scene generator understands.
//   - CheckObjectProperties validates the computed bounds of every
//     instance against the scene's metaData.
//   - CreateReport renders, evaluates and checks every instance, merges
//     the results and writes report.json plus the evaluation images.
//
// Only backend initialization and output failures are returned as errors.
// Invalid scenes, unsupported features, missing images and failing
// instances are collected on the Run and never stop the matrix.
package harness
