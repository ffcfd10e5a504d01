// Package shaders holds the GLSL sources of the deferred pass. go generate
// compiles each stage to <name>.<stage>.spv next to it with glslc.
package shaders

//go:generate glslc geometry.vert -o geometry.vert.spv
//go:generate glslc geometry.frag -o geometry.frag.spv
//go:generate glslc ambient.vert -o ambient.vert.spv
//go:generate glslc ambient.frag -o ambient.frag.spv
//go:generate glslc directional.vert -o directional.vert.spv
//go:generate glslc directional.frag -o directional.frag.spv
//go:generate glslc point.vert -o point.vert.spv
//go:generate glslc point.frag -o point.frag.spv
//go:generate glslc skybox.vert -o skybox.vert.spv
//go:generate glslc skybox.frag -o skybox.frag.spv
//go:generate glslc light_object.vert -o light_object.vert.spv
//go:generate glslc light_object.frag -o light_object.frag.spv
