package vkctx

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/meshviewer/internal/logging"
)

const validationLayer = "VK_LAYER_KHRONOS_validation"

func (c *Context) createInstance(global core1_0.GlobalDriver, windowExtensions []string, opts Options) error {
	name := opts.ApplicationName
	if name == "" {
		name = "meshviewer"
	}

	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    name,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := global.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "failed to enumerate instance extensions")
	}

	for _, ext := range windowExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Newf("window system requires missing instance extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if opts.Validation {
		layers, _, err := global.AvailableLayers()
		if err != nil {
			return errors.Wrap(err, "failed to enumerate instance layers")
		}

		_, hasValidation := layers[validationLayer]
		if !hasValidation {
			return errors.Newf("validation layer %s not available- install the LunarG Vulkan SDK", validationLayer)
		}

		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayer)
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		// Catches messages emitted during instance creation itself.
		instanceOptions.Next = debugMessengerOptions()
	}

	logging.Logger().Debug("creating instance",
		"layers", instanceOptions.EnabledLayerNames,
		"extensions", instanceOptions.EnabledExtensionNames)

	c.Instance, _, err = global.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "failed to create instance")
	}

	return nil
}

func debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}
}

func (c *Context) setupDebugMessenger() error {
	var err error
	c.debug = ext_debug_utils.CreateExtensionDriverFromCoreDriver(c.Instance)
	c.messenger, _, err = c.debug.CreateDebugUtilsMessenger(nil, debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "failed to create debug messenger")
	}

	return nil
}

func logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	level := slog.LevelWarn
	if severity&ext_debug_utils.SeverityError != 0 {
		level = slog.LevelError
	}

	logging.Logger().Log(context.Background(), level, data.Message, "type", msgType.String(), "id", data.MessageIDName)
	return false
}
