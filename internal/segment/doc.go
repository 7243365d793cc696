// Package segment defines the segmentation boundary: the Segmenter
// interface the batch runner depends on, the LabelMask value type counts
// are derived from, and the Cellpose engine that implements Segmenter by
// driving a per-run Python worker subprocess.
//
// The engine starts the worker once per run. The worker loads the model for
// a requested device and then answers one line-delimited JSON request per
// image, writing each label mask to a PNG the driver reads back. Device
// acquisition follows a fixed preference order: cuda, then mps, then cpu.
//
// Label-mask semantics: 0 is background, positive integers are distinct
// colony instances.
package segment
