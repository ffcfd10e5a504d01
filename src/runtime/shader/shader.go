package shader

import (
	"encoding/binary"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/goki/vulkan"
)

const spirvMagic = 0x07230203

func sliceUint32(raw []byte) ([]uint32, error) {
	const sizeofUint32 = 4

	if len(raw) == 0 || len(raw)%sizeofUint32 != 0 {
		return nil, errors.Newf("spir-v size %d is not a positive multiple of 4", len(raw))
	}

	result := make([]uint32, len(raw)/sizeofUint32)
	for i := range result {
		result[i] = binary.LittleEndian.Uint32(raw[i*sizeofUint32 : (i+1)*sizeofUint32])
	}
	if result[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#x", result[0])
	}

	return result, nil
}

// CreateShaderModule loads a compiled SPIR-V file.
func CreateShaderModule(path string, logicalDevice vulkan.Device) (vulkan.ShaderModule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read shader")
	}
	code, err := sliceUint32(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", path)
	}

	var shaderModule vulkan.ShaderModule
	if err := vulkan.Error(vulkan.CreateShaderModule(logicalDevice, &vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(raw)),
		PCode:    code,
	}, nil, &shaderModule)); err != nil {
		return nil, errors.Wrapf(err, "create shader module %s", path)
	}

	return shaderModule, nil
}
